package ui

import (
	"fmt"
	"os/exec"
	"runtime"

	"mineralscraper/pkg/config"
)

// NotificationSender delivers a desktop notification
type NotificationSender interface {
	Send(title, message string) error
}

// LinuxNotificationSender sends notifications on Linux using notify-send
type LinuxNotificationSender struct{}

func (l *LinuxNotificationSender) Send(title, message string) error {
	return exec.Command("notify-send", "--app-name=mineralscraper", title, message).Run()
}

// MacOSNotificationSender sends notifications on macOS using osascript
type MacOSNotificationSender struct{}

func (m *MacOSNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`display notification %q with title %q`, message, title)
	return exec.Command("osascript", "-e", script).Run()
}

// Notifier sends desktop notifications for finished runs, as allowed by the
// notifications section of the config
type Notifier struct {
	sender NotificationSender
	cfg    config.NotificationConfig
}

// NewNotifier picks the sender for the current platform. Platforms without
// a sender get a notifier that does nothing.
func NewNotifier(cfg config.NotificationConfig) *Notifier {
	var sender NotificationSender
	switch runtime.GOOS {
	case "linux":
		sender = &LinuxNotificationSender{}
	case "darwin":
		sender = &MacOSNotificationSender{}
	}
	return NewNotifierWithSender(cfg, sender)
}

// NewNotifierWithSender creates a notifier using sender
func NewNotifierWithSender(cfg config.NotificationConfig, sender NotificationSender) *Notifier {
	return &Notifier{sender: sender, cfg: cfg}
}

// RunComplete announces the end of a run over the given minerals
func (n *Notifier) RunComplete(results []MineralResult) error {
	if !n.cfg.Enabled || !n.cfg.OnComplete {
		return nil
	}
	posts, comments := 0, 0
	for _, r := range results {
		posts += r.NewPosts
		comments += r.NewComments
	}
	msg := fmt.Sprintf("%d minerals: %d new posts, %d new comments", len(results), posts, comments)
	return n.send("Scrape complete", msg)
}

// RunFailed announces a run that stopped with an error
func (n *Notifier) RunFailed(err error) error {
	if !n.cfg.Enabled || !n.cfg.OnError || err == nil {
		return nil
	}
	return n.send("Scrape failed", err.Error())
}

func (n *Notifier) send(title, message string) error {
	if n.sender == nil {
		return nil
	}
	return n.sender.Send("mineralscraper: "+title, message)
}
