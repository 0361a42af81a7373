package email

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/zr8c/index_go_server/config"
)

type Service struct {
	cfg *config.EmailConfig
}

func NewService(cfg *config.EmailConfig) *Service {
	return &Service{cfg: cfg}
}

// SendBatchReport 批次处理完成通知
func (s *Service) SendBatchReport(to string, batchID int64, success, failed int, refunded int64) error {
	subject := fmt.Sprintf("批次 #%d 处理完成 - URL 提交平台", batchID)

	refundLine := ""
	if refunded > 0 {
		refundLine = fmt.Sprintf("<p>失败部分已退还 <b>%d</b> 积分。</p>", refunded)
	}

	body := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h2 style="color: #2563eb;">批次处理完成</h2>
        <p>您好，</p>
        <p>您提交的批次 #%d 已处理完毕：</p>
        <div style="background-color: #f3f4f6; padding: 15px; margin: 20px 0;">
            <p>成功提交：<b>%d</b> 条</p>
            <p>提交失败：<b>%d</b> 条</p>
        </div>
        %s
        <hr style="border: none; border-top: 1px solid #e5e7eb; margin: 20px 0;">
        <p style="color: #6b7280; font-size: 12px;">此邮件由系统自动发送，请勿回复。</p>
    </div>
</body>
</html>
`, batchID, success, failed, refundLine)

	return s.sendHTML(to, subject, body)
}

// SendLowBalance 余额不足提醒
func (s *Service) SendLowBalance(to string, balance int64) error {
	subject := "积分余额不足 - URL 提交平台"
	body := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h2 style="color: #2563eb;">积分余额不足</h2>
        <p>您好，</p>
        <p>您的积分余额仅剩：</p>
        <div style="background-color: #f3f4f6; padding: 15px; text-align: center; font-size: 24px; font-weight: bold; margin: 20px 0;">
            %d
        </div>
        <p>请及时充值，以免影响 URL 提交。</p>
        <hr style="border: none; border-top: 1px solid #e5e7eb; margin: 20px 0;">
        <p style="color: #6b7280; font-size: 12px;">此邮件由系统自动发送，请勿回复。</p>
    </div>
</body>
</html>
`, balance)

	return s.sendHTML(to, subject, body)
}

// SendDailyReport 管理员日报
func (s *Service) SendDailyReport(to string, activeUsers, txCount, creditsAdded, creditsUsed int64) error {
	subject := "每日运营报告 - URL 提交平台"
	body := fmt.Sprintf(`今日活跃用户：%d
今日流水笔数：%d
今日充值积分：%d
今日消耗积分：%d
`, activeUsers, txCount, creditsAdded, creditsUsed)

	return s.sendPlain(to, subject, body)
}

// sendHTML 发送 HTML 邮件
func (s *Service) sendHTML(to, subject, body string) error {
	return s.send(to, subject, body, "text/html; charset=UTF-8")
}

// sendPlain 发送纯文本邮件
func (s *Service) sendPlain(to, subject, body string) error {
	return s.send(to, subject, body, "text/plain; charset=UTF-8")
}

func (s *Service) send(to, subject, body, contentType string) error {
	headers := make(map[string]string)
	headers["From"] = s.cfg.From
	headers["To"] = to
	headers["Subject"] = subject
	headers["MIME-Version"] = "1.0"
	headers["Content-Type"] = contentType

	var msg strings.Builder
	for k, v := range headers {
		msg.WriteString(fmt.Sprintf("%s: %s\r\n", k, v))
	}
	msg.WriteString("\r\n")
	msg.WriteString(body)

	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.SMTPHost)
	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)

	return smtp.SendMail(addr, auth, s.cfg.From, []string{to}, []byte(msg.String()))
}
