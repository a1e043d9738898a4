package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bowerhall/graphcol/internal/logger"
)

type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarn
	SeverityCritical
)

// Alerter sends alerts through a Sender, suppressing repeats of the same
// component/message pair within the cooldown.
type Alerter struct {
	mu        sync.Mutex
	sender    Sender
	cooldowns map[string]time.Time
	cooldown  time.Duration
	now       func() time.Time
}

func NewAlerter(sender Sender, cooldown time.Duration) *Alerter {
	return &Alerter{
		sender:    sender,
		cooldowns: make(map[string]time.Time),
		cooldown:  cooldown,
		now:       time.Now,
	}
}

func (a *Alerter) Alert(ctx context.Context, severity Severity, component, message string, err error) {
	if a == nil || a.sender == nil {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	key := fmt.Sprintf("%s:%s", component, message)

	if lastSent, ok := a.cooldowns[key]; ok {
		if a.now().Sub(lastSent) < a.cooldown {
			logger.Debug("alert suppressed (cooldown)", "component", component, "message", message)
			return
		}
	}

	var text string
	switch severity {
	case SeverityCritical:
		text = fmt.Sprintf("🚨 %s: %s", component, message)
	case SeverityWarn:
		text = fmt.Sprintf("⚠️ %s: %s", component, message)
	default:
		text = fmt.Sprintf("ℹ️ %s: %s", component, message)
	}

	if err != nil {
		text += fmt.Sprintf("\n\nError: %v", err)
	}

	if sendErr := a.sender.Send(ctx, text); sendErr != nil {
		logger.Warn("alert not delivered", "component", component, "error", sendErr)
		return
	}

	a.cooldowns[key] = a.now()
	logger.Info("alert sent", "component", component, "severity", severity)
}

func (a *Alerter) Critical(ctx context.Context, component, message string, err error) {
	a.Alert(ctx, SeverityCritical, component, message, err)
}

func (a *Alerter) Warn(ctx context.Context, component, message string, err error) {
	a.Alert(ctx, SeverityWarn, component, message, err)
}

func (a *Alerter) Info(ctx context.Context, component, message string) {
	a.Alert(ctx, SeverityInfo, component, message, nil)
}
