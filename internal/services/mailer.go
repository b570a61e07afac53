package services

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/example/annavaram/internal/config"
)

// Mailer delivers transactional email.
type Mailer interface {
	SendOTPEmail(ctx context.Context, to, otp string, expiresMinutes int) error
	SendPasswordResetEmail(ctx context.Context, to, otp string, expiresMinutes int) error
}

const smtpTimeout = 15 * time.Second

// NewMailer returns an SMTP mailer when SMTP is configured, else a logging mailer.
func NewMailer(cfg *config.Config, log *zap.Logger) Mailer {
	if !cfg.SMTPEnabled() {
		log.Warn("SMTP not configured, emails will be logged instead of sent")
		return &LogMailer{log: log}
	}
	return &SMTPMailer{
		host:    cfg.SMTPHost,
		port:    cfg.SMTPPort,
		user:    cfg.SMTPUser,
		pass:    cfg.SMTPPass,
		from:    cfg.SMTPFrom,
		timeout: smtpTimeout,
		log:     log,
	}
}

type mailMessage struct {
	to      string
	subject string
	text    string
	html    string
}

func otpMessage(to, otp string, minutes int) mailMessage {
	return mailMessage{
		to:      to,
		subject: "Your Online Annavaram verification code",
		text:    fmt.Sprintf("Use the following verification code to complete your signup: %s. It expires in %d minutes.", otp, minutes),
		html: fmt.Sprintf(`<p>Namaste!</p>
<p>Your verification code is <strong style="font-size:18px;">%s</strong>.</p>
<p>The code will expire in %d minutes.</p>
<p>If you didn't request this code, please ignore this email.</p>
<p>&mdash; Online Annavaram</p>`, otp, minutes),
	}
}

func passwordResetMessage(to, otp string, minutes int) mailMessage {
	return mailMessage{
		to:      to,
		subject: "Reset your Online Annavaram password",
		text:    fmt.Sprintf("Use this code to reset your password: %s. It expires in %d minutes.", otp, minutes),
		html: fmt.Sprintf(`<p>Namaste!</p>
<p>Your password reset code is <strong style="font-size:18px;">%s</strong>.</p>
<p>The code will expire in %d minutes.</p>
<p>If you didn't request a reset, you can safely ignore this message.</p>
<p>&mdash; Online Annavaram</p>`, otp, minutes),
	}
}

// SMTPMailer sends multipart email through an SMTP relay. Port 465 uses
// implicit TLS; other ports upgrade with STARTTLS when the server offers it.
type SMTPMailer struct {
	host    string
	port    int
	user    string
	pass    string
	from    string
	timeout time.Duration
	log     *zap.Logger
}

func (m *SMTPMailer) SendOTPEmail(ctx context.Context, to, otp string, expiresMinutes int) error {
	return m.send(ctx, otpMessage(to, otp, expiresMinutes))
}

func (m *SMTPMailer) SendPasswordResetEmail(ctx context.Context, to, otp string, expiresMinutes int) error {
	return m.send(ctx, passwordResetMessage(to, otp, expiresMinutes))
}

func (m *SMTPMailer) send(ctx context.Context, msg mailMessage) error {
	message, err := buildMessage(m.from, msg)
	if err != nil {
		return err
	}

	client, err := mail.NewClient(m.host, m.options()...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, message); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	m.log.Info("mail sent", zap.String("to", msg.to), zap.String("subject", msg.subject))
	return nil
}

func (m *SMTPMailer) options() []mail.Option {
	opts := []mail.Option{
		mail.WithPort(m.port),
		mail.WithTimeout(m.timeout),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if m.port == 465 {
		opts = append(opts, mail.WithSSL())
	}
	if m.user != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.user),
			mail.WithPassword(m.pass),
		)
	}
	return opts
}

func buildMessage(from string, msg mailMessage) (*mail.Msg, error) {
	message := mail.NewMsg()
	if err := message.From(from); err != nil {
		return nil, fmt.Errorf("mail sender: %w", err)
	}
	if err := message.To(msg.to); err != nil {
		return nil, fmt.Errorf("mail recipient: %w", err)
	}
	message.Subject(msg.subject)
	message.SetDate()
	message.SetMessageID()
	message.SetBodyString(mail.TypeTextPlain, msg.text)
	message.AddAlternativeString(mail.TypeTextHTML, msg.html)
	return message, nil
}

// LogMailer writes codes to the log. Used in development without SMTP.
type LogMailer struct {
	log *zap.Logger
}

func (m *LogMailer) SendOTPEmail(_ context.Context, to, otp string, expiresMinutes int) error {
	m.log.Info("verification code", zap.String("to", to), zap.String("otp", otp), zap.Int("expires_minutes", expiresMinutes))
	return nil
}

func (m *LogMailer) SendPasswordResetEmail(_ context.Context, to, otp string, expiresMinutes int) error {
	m.log.Info("password reset code", zap.String("to", to), zap.String("otp", otp), zap.Int("expires_minutes", expiresMinutes))
	return nil
}
