package emailsvc

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/epe202/ulas/core"
)

// SentMessages collects everything "sent" in debug/test mode.
var (
	sentMu       sync.Mutex
	SentMessages = make([]core.EmailMessage, 0)
)

type consoleService struct {
	defaultFrom string
	subjPrefix  string
}

var _ core.EmailService = (*consoleService)(nil)

// NewConsoleService returns an EmailService that prints messages to stdout
// instead of sending them. Used in debug and test modes.
func NewConsoleService(conf *core.Config) core.EmailService {
	return &consoleService{
		defaultFrom: conf.Email.DefaultFrom,
		subjPrefix:  "[" + conf.AppName + "] ",
	}
}

func (svc consoleService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		if !msg.HasRecipients() || !(msg.HasContent() || msg.HasAttachments()) {
			continue
		}

		tos := make([]string, 0, len(msg.To))
		for _, to := range msg.To {
			tos = append(tos, to.String())
		}
		names := make([]string, 0, len(msg.Attachments))
		for _, at := range msg.Attachments {
			names = append(names, fmt.Sprintf("%s (%s, %dB)", at.Filename, at.ContentType, at.Content.Len()))
		}

		log.Printf(
			"From: %s\nTo: %s\nSubject: %s%s\nDate: %s\nAttachments: %s\n\n%s\n",
			svc.defaultFrom,
			strings.Join(tos, ", "),
			svc.subjPrefix, msg.Subject,
			time.Now().Format(time.RFC1123Z),
			strings.Join(names, ", "),
			msg.BodyStr,
		)

		sentMu.Lock()
		SentMessages = append(SentMessages, *msg)
		sentMu.Unlock()
	}
}
