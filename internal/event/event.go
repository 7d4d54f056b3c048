package event

import (
	"time"

	jsoniter "github.com/json-iterator/go"
)

const (
	RoutingKeyLoanOverdue = "loan.overdue"
	publisherAppID        = "library-api"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// OverdueNoticeEvent asks the mailer to send one message to every recipient.
type OverdueNoticeEvent struct {
	ID         string    `json:"id"`
	Message    string    `json:"message"`
	Recipients []string  `json:"recipients"`
	Timestamp  time.Time `json:"timestamp"`
}

func EncodeOverdueNotice(e OverdueNoticeEvent) ([]byte, error) {
	return json.Marshal(e)
}

func DecodeOverdueNotice(body []byte) (OverdueNoticeEvent, error) {
	var e OverdueNoticeEvent
	err := json.Unmarshal(body, &e)
	return e, err
}
