package auth

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordBytes 是 bcrypt 能处理的最长输入，超出部分会被静默截断，因此直接拒绝。
const MaxPasswordBytes = 72

// ErrPasswordTooLong 表示密码超过 MaxPasswordBytes。
var ErrPasswordTooLong = errors.New("password exceeds 72 bytes")

// dummyHash 用于账号不存在时的比较，让登录失败的耗时与真实账号一致。
var dummyHash = sync.OnceValue(func() []byte {
	hash, _ := bcrypt.GenerateFromPassword([]byte("jobtracker-timing-guard"), bcrypt.DefaultCost)
	return hash
})

// HashPassword 使用 bcrypt 生成密码哈希。
func HashPassword(password string) (string, error) {
	if len(password) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPasswordHash 校验密码是否匹配哈希。hash 为空时仍执行一次完整比较并返回 false。
func CheckPasswordHash(password, hash string) bool {
	if hash == "" {
		_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(password))
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
