// Package mail sends transactional email over SMTP. Without SMTP
// credentials the mailer runs in simulated mode and only logs, which keeps
// local development working without an email account.
package mail

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"
)

// Config carries the SMTP settings. An empty Host enables simulated mode.
type Config struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

// Mailer implements ports.Mailer with gomail.
type Mailer struct {
	cfg Config
	log zerolog.Logger

	// send is swapped out in tests.
	send func(m *gomail.Message) error
}

func NewMailer(cfg Config, log zerolog.Logger) *Mailer {
	m := &Mailer{cfg: cfg, log: log}
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Pass)
	m.send = func(msg *gomail.Message) error {
		return dialer.DialAndSend(msg)
	}
	return m
}

func (m *Mailer) SendVerificationCode(_ context.Context, to, fullName, code string) error {
	subject := "Votre code de vérification Bollé"
	body := fmt.Sprintf(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #1E88E5;">Bienvenue sur Bollé !</h2>
  <p>Bonjour %s,</p>
  <p>Merci de vous être inscrit sur Bollé, l'application de signalement citoyen pour un Sénégal meilleur.</p>
  <p>Voici votre code de vérification :</p>
  <div style="text-align: center; margin: 30px 0;">
    <div style="background-color: #f0f0f0; padding: 15px; font-size: 24px; letter-spacing: 5px; font-weight: bold; border-radius: 4px;">%s</div>
  </div>
  <p>Veuillez saisir ce code dans l'application pour vérifier votre compte.</p>
  <p>Ce code est valable pendant 24 heures.</p>
  <p>Si vous n'avez pas créé de compte sur Bollé, veuillez ignorer cet email.</p>
  <p>Cordialement,<br>L'équipe Bollé</p>
</div>`, fullName, code)

	return m.deliver(to, subject, body)
}

func (m *Mailer) SendPasswordReset(_ context.Context, to, fullName, resetURL string) error {
	subject := "Réinitialisation de votre mot de passe Bollé"
	body := fmt.Sprintf(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #1E88E5;">Réinitialisation de mot de passe</h2>
  <p>Bonjour %s,</p>
  <p>Vous avez demandé la réinitialisation de votre mot de passe sur Bollé.</p>
  <p>Pour créer un nouveau mot de passe, veuillez cliquer sur le lien ci-dessous :</p>
  <p><a href="%s">Réinitialiser mon mot de passe</a></p>
  <p>Ce lien est valable pendant 1 heure.</p>
  <p>Si vous n'avez pas demandé la réinitialisation de votre mot de passe, veuillez ignorer cet email.</p>
  <p>Cordialement,<br>L'équipe Bollé</p>
</div>`, fullName, resetURL)

	return m.deliver(to, subject, body)
}

func (m *Mailer) SendTemporaryPassword(_ context.Context, to, fullName, password string) error {
	subject := "Votre mot de passe temporaire Bollé"
	body := fmt.Sprintf(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #1E88E5;">Mot de passe temporaire</h2>
  <p>Bonjour %s,</p>
  <p>Voici votre mot de passe temporaire : <strong>%s</strong></p>
  <p>Vous devrez le changer lors de votre prochaine connexion.</p>
  <p>Cordialement,<br>L'équipe Bollé</p>
</div>`, fullName, password)

	return m.deliver(to, subject, body)
}

func (m *Mailer) deliver(to, subject, body string) error {
	if m.cfg.Host == "" {
		m.log.Info().
			Str("to", to).
			Str("subject", subject).
			Msg("simulated email (no SMTP host configured)")
		return nil
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	if err := m.send(msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

// SMSSender is the simulated implementation of ports.SMSSender: no SMS
// gateway is wired up yet, the payload is logged instead.
type SMSSender struct {
	log zerolog.Logger
}

func NewSMSSender(log zerolog.Logger) *SMSSender {
	return &SMSSender{log: log}
}

func (s *SMSSender) SendCode(_ context.Context, phone, code string) error {
	s.log.Info().Str("phone", phone).Str("code", code).Msg("simulated verification sms")
	return nil
}
