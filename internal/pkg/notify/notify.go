package notify

// Notifier 定义通知接口。
type Notifier interface {
	// SendWelcome 给新注册用户发送欢迎邮件。
	//
	// 参数:
	//   toEmail: 接收邮箱
	//   name: 用户显示名称
	SendWelcome(toEmail string, name string) error
}
