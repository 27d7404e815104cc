package email

import (
	"fmt"
	"net"
	"net/smtp"
	"strings"
)

// Sender delivers order confirmations.
type Sender interface {
	SendOrderConfirmation(to string, order OrderSummary) error
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Service handles email sending via SMTP
type Service struct {
	host string
	port string
	from string
	send sendFunc
}

// NewService creates a new email service
func NewService(host, port, from string) *Service {
	return &Service{
		host: host,
		port: port,
		from: from,
		send: smtp.SendMail,
	}
}

// SendOrderConfirmation sends an order confirmation email
func (s *Service) SendOrderConfirmation(to string, order OrderSummary) error {
	if strings.ContainsAny(to, "\r\n") {
		return fmt.Errorf("invalid recipient %q", to)
	}
	subject := fmt.Sprintf("Order confirmation (order %s)", ShortID(order.OrderID))
	return s.deliver(to, subject, BuildOrderConfirmationBody(order))
}

func (s *Service) deliver(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		s.from, to, subject, body)
	return s.send(net.JoinHostPort(s.host, s.port), nil, s.from, []string{to}, []byte(msg))
}
