package agent

// Prompt 代表一次模型调用的完整请求。
type Prompt struct {
	Model    string
	Messages []Message
}
