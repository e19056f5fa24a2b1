package inmemdb

import "errors"

var (
	errDuplicateFileID = errors.New("duplicate upload file id")
	errDuplicateEmail  = errors.New("duplicate user email")
)
