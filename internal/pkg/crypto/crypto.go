package crypto

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// UnusablePassword 仅允许 Shibboleth/LDAP 登录的账号
const UnusablePassword = "!"

// ErrPasswordTooLong bcrypt 只接受 72 字节以内
var ErrPasswordTooLong = errors.New("密码长度超过72字节")

// HashPassword bcrypt 哈希
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", ErrPasswordTooLong
	}
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword 未设置密码的账号一律校验失败
func CheckPassword(password, hash string) bool {
	if !HasUsablePassword(hash) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func HasUsablePassword(hash string) bool {
	return hash != "" && hash != UnusablePassword
}
