// Package servicestest holds doubles shared by service and handler tests.
package servicestest

import (
	"context"
	"strings"
	"sync"
)

// SentEmail is one message accepted by RecordingMailer.
type SentEmail struct {
	From    string
	To      []string
	Subject string
	Body    string
}

// RecordingMailer keeps sent messages in memory. Err fails every send;
// FailOnce fails the next send whose subject contains the given text.
type RecordingMailer struct {
	mu       sync.Mutex
	messages []SentEmail
	failOnce []string
	Err      error
}

// FailOnce makes the next send whose subject contains fragment fail.
func (m *RecordingMailer) FailOnce(fragment string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failOnce = append(m.failOnce, fragment)
}

func (m *RecordingMailer) Send(_ context.Context, from string, to []string, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	for i, fragment := range m.failOnce {
		if strings.Contains(subject, fragment) {
			m.failOnce = append(m.failOnce[:i], m.failOnce[i+1:]...)
			return errSendFailed
		}
	}
	m.messages = append(m.messages, SentEmail{From: from, To: to, Subject: subject, Body: body})
	return nil
}

// Sent returns a copy of the accepted messages in send order.
func (m *RecordingMailer) Sent() []SentEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentEmail(nil), m.messages...)
}

// Matching returns the accepted messages whose subject contains fragment.
func (m *RecordingMailer) Matching(fragment string) []SentEmail {
	var out []SentEmail
	for _, msg := range m.Sent() {
		if strings.Contains(msg.Subject, fragment) {
			out = append(out, msg)
		}
	}
	return out
}

type sendError string

func (e sendError) Error() string { return string(e) }

const errSendFailed = sendError("mail relay rejected message")
