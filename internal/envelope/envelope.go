package envelope

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"conveyor/internal/services"
)

// Content types carried on the wire. Raw bodies that predate the typed
// constructors default to JSON.
const (
	ContentTypeJSON = "application/json"
	ContentTypeText = "text/plain"
)

// Envelope is the unit of transfer between pipeline stages. The ID survives
// every hop so one order can be traced across queues; Subject carries the
// routing outcome of the previous stage.
type Envelope struct {
	ID          string `json:"id"`
	Subject     string `json:"subject,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body"`
}

// New creates an envelope with a fresh identifier around the given body.
func New(body []byte) Envelope {
	return Envelope{
		ID:          uuid.NewString(),
		ContentType: ContentTypeJSON,
		Body:        body,
	}
}

// NewJSON marshals value and wraps it in a fresh envelope.
func NewJSON(value any) (Envelope, error) {
	body, err := json.Marshal(value)
	if err != nil {
		return Envelope{}, services.Wrap(services.ErrPayload, "", "envelope encode", "marshal body", err)
	}
	return New(body), nil
}

// Derive produces a follow-up envelope that keeps the parent's ID so the
// delivery chain stays correlated, with a new subject and body.
func (e Envelope) Derive(subject string, body []byte) Envelope {
	id := e.ID
	if id == "" {
		id = uuid.NewString()
	}
	return Envelope{
		ID:          id,
		Subject:     subject,
		ContentType: ContentTypeJSON,
		Body:        body,
	}
}

// storageReference mirrors the `{"data": {"url": "..."}}` shape used for
// ingestion notifications that point at stored objects.
type storageReference struct {
	Data struct {
		URL string `json:"url"`
	} `json:"data"`
}

// NewStorageReference builds an envelope whose body points at a stored object.
func NewStorageReference(url string) (Envelope, error) {
	var ref storageReference
	ref.Data.URL = url
	return NewJSON(ref)
}

// StorageURL extracts the object URL from a storage-reference body. A body
// that does not decode is a payload error; a decoded body with a blank URL
// returns ok=false with no error so callers can treat it as a handled case.
func (e Envelope) StorageURL() (string, bool, error) {
	var ref storageReference
	if err := json.Unmarshal(e.Body, &ref); err != nil {
		return "", false, services.Wrap(services.ErrPayload, "", "envelope decode", "parse storage reference", err)
	}
	url := strings.TrimSpace(ref.Data.URL)
	if url == "" {
		return "", false, nil
	}
	return url, true, nil
}
