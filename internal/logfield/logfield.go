package lf

import "go.uber.org/zap"

const (
	FieldModule    = "module"
	FieldUserID    = "user_id"
	FieldEmail     = "email"
	FieldFileID    = "file_id"
	FieldFileName  = "file_name"
	FieldLine      = "line"
	FieldStudentID = "student_id"
	FieldClass     = "class"
	FieldExamName  = "exam_name"
	FieldSubject   = "subject"
	FieldRows      = "rows"
	FieldStatus    = "status"
)

func Module(module string) zap.Field {
	return zap.String(FieldModule, module)
}

func UserID(ID uint) zap.Field {
	return zap.Uint(FieldUserID, ID)
}

func Email(email string) zap.Field {
	return zap.String(FieldEmail, email)
}

func FileID(ID string) zap.Field {
	return zap.String(FieldFileID, ID)
}

func FileName(name string) zap.Field {
	return zap.String(FieldFileName, name)
}

func Line(line int) zap.Field {
	return zap.Int(FieldLine, line)
}

func StudentID(ID string) zap.Field {
	return zap.String(FieldStudentID, ID)
}

func Class(class string) zap.Field {
	return zap.String(FieldClass, class)
}

func ExamName(name string) zap.Field {
	return zap.String(FieldExamName, name)
}

func Subject(subject string) zap.Field {
	return zap.String(FieldSubject, subject)
}

func Rows(n int) zap.Field {
	return zap.Int(FieldRows, n)
}

func Status(status string) zap.Field {
	return zap.String(FieldStatus, status)
}
