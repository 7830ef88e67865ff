package util

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

// 上传答案文件的对象存储前缀
const QuizUploadPrefix = "quiz-uploads"

// 单个答案文件上限
const MaxUploadSize = 20 << 20

var AllowedUploadExtensions = []string{".pdf", ".doc", ".docx", ".txt", ".md", ".zip", ".png", ".jpg", ".jpeg", ".c", ".go", ".py", ".java"}
