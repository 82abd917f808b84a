package document

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/VaisnaviiMohanraj/RAI-V2-sub000/internal/domain"
)

// Characters never accepted in an uploaded file name. Covers path traversal
// and shell metacharacters.
const forbiddenNameChars = "/\\<>:\"|?*$;&`'"

// Validator checks uploads against the configured allow-list and size
// ceiling before any bytes are stored.
type Validator struct {
	allowedExtensions map[string]bool
	maxBytes          int64
}

// NewValidator creates a validator. An empty extension list falls back to
// the deployment defaults (.pdf, .docx).
func NewValidator(extensions []string, maxBytes int64) *Validator {
	if len(extensions) == 0 {
		extensions = []string{".pdf", ".docx"}
	}
	if maxBytes <= 0 {
		maxBytes = 10 * 1024 * 1024
	}

	allowed := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		allowed[strings.ToLower(ext)] = true
	}

	return &Validator{allowedExtensions: allowed, maxBytes: maxBytes}
}

// Declared content types accepted per extension. Extensions configured
// beyond these accept any declared type.
var contentTypesByExt = map[string][]string{
	".pdf":  {"application/pdf"},
	".docx": {"application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
}

// Validate checks a file name, declared content type, and declared size.
// The returned error wraps domain.ErrInvalidRequest with a specific reason.
func (v *Validator) Validate(fileName, contentType string, size int64) error {
	if fileName == "" {
		return fmt.Errorf("%w: file name is empty", domain.ErrInvalidRequest)
	}
	if strings.Contains(fileName, "..") || strings.ContainsAny(fileName, forbiddenNameChars) {
		return fmt.Errorf("%w: file name contains forbidden characters", domain.ErrInvalidRequest)
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	if !v.allowedExtensions[ext] {
		return fmt.Errorf("%w: file type %q is not supported", domain.ErrInvalidRequest, ext)
	}

	if expected, ok := contentTypesByExt[ext]; ok && contentType != "" && contentType != "application/octet-stream" {
		matched := false
		for _, want := range expected {
			if strings.HasPrefix(contentType, want) {
				matched = true
				break
			}
		}
		if !matched {
			return fmt.Errorf("%w: content type %q does not match %s", domain.ErrInvalidRequest, contentType, ext)
		}
	}

	if size > v.maxBytes {
		return fmt.Errorf("%w: file exceeds the %d byte limit", domain.ErrInvalidRequest, v.maxBytes)
	}
	if size <= 0 {
		return fmt.Errorf("%w: file is empty", domain.ErrInvalidRequest)
	}

	return nil
}
