package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
)

type Role = string

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `json:"name"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash []byte    `json:"-"`
	Role         Role      `gorm:"index" json:"role,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (u *User) SetPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)) == nil
}

func IsKnownRole(role string) bool {
	return role == RoleTeacher || role == RoleAdmin
}

type Session struct {
	ID        uint   `gorm:"primaryKey"`
	Token     string `gorm:"uniqueIndex"`
	UserID    uint   `gorm:"index"`
	CreatedAt time.Time
}
