package api

import (
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"jobtracker/internal/errcode"
	"jobtracker/internal/metrics"
	"jobtracker/internal/tracker"
)

const msgNotAFile = "The submitted data was not a file. Check the encoding type on the form."

// ResumeHandler 负责简历上传（multipart）、标签更新与下载链接。
type ResumeHandler struct {
	*EntityHandler[tracker.ResumeInput, tracker.ResumeView]
	resumes *tracker.ResumeService
}

// NewResumeHandler 构造 ResumeHandler。List/Get/Delete 复用通用实体处理器。
func NewResumeHandler(resumes *tracker.ResumeService) *ResumeHandler {
	return &ResumeHandler{
		EntityHandler: NewEntityHandler[tracker.ResumeInput, tracker.ResumeView]("resume", resumes),
		resumes:       resumes,
	}
}

// bindResumeInput 读取 multipart 的 file 与重复的 tags 字段；非 multipart 请求按 JSON {tags} 处理。
// 返回的 closer 需在请求结束前调用。
func bindResumeInput(c *gin.Context) (tracker.ResumeInput, func(), bool) {
	var in tracker.ResumeInput
	noop := func() {}

	if c.ContentType() != "multipart/form-data" {
		return in, noop, bindJSON(c, &in)
	}

	form, err := c.MultipartForm()
	if err != nil {
		respondError(c, errcode.Invalid("file", msgNotAFile))
		return in, noop, false
	}
	// 空白标签名与 JSON 一样交给校验报错；清空标签需走 JSON {"tags": []}
	if values, ok := form.Value["tags"]; ok {
		in.Tags = tracker.Some(tracker.TagNames(values))
	}

	files := form.File["file"]
	if len(files) == 0 {
		return in, noop, true
	}
	upload, closer, err := openUpload(files[0])
	if err != nil {
		respondError(c, err)
		return in, noop, false
	}
	in.File = upload
	return in, closer, true
}

func openUpload(fh *multipart.FileHeader) (*tracker.Upload, func(), error) {
	f, err := fh.Open()
	if err != nil {
		return nil, nil, err
	}
	return &tracker.Upload{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Reader:      f,
	}, func() { _ = f.Close() }, nil
}

// Create 上传一份 PDF 简历。
func (h *ResumeHandler) Create(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	in, closeUpload, ok := bindResumeInput(c)
	if !ok {
		return
	}
	defer closeUpload()

	view, err := h.resumes.Create(c.Request.Context(), userID, in)
	if err != nil {
		respondError(c, err)
		return
	}
	metrics.RecordMutation("resume", "create")
	c.JSON(http.StatusCreated, view)
}

// Update 替换标签和/或文件，变更会被持久化。
func (h *ResumeHandler) Update(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	in, closeUpload, ok := bindResumeInput(c)
	if !ok {
		return
	}
	defer closeUpload()

	view, err := h.resumes.Update(c.Request.Context(), userID, id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	metrics.RecordMutation("resume", "update")
	c.JSON(http.StatusOK, view)
}

// GetDownloadLink 生成简历 PDF 的预签名下载链接。
func (h *ResumeHandler) GetDownloadLink(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	link, err := h.resumes.DownloadLink(c.Request.Context(), userID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, link)
}
