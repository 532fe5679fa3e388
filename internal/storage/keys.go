package storage

import (
	"fmt"

	"github.com/google/uuid"
)

// ResumePrefix 返回某个用户全部简历对象的公共前缀。
func ResumePrefix(ownerID uint) string {
	return fmt.Sprintf("resumes/%d/", ownerID)
}

// NewResumeObjectKey 为新上传的简历生成唯一对象键。
func NewResumeObjectKey(ownerID uint) string {
	return ResumePrefix(ownerID) + uuid.NewString() + ".pdf"
}
