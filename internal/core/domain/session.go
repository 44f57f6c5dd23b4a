package domain

import "time"

// SessionState est l'état de la machine de session côté client.
type SessionState int

const (
	Anonymous SessionState = iota
	Authenticated
)

func (s SessionState) String() string {
	switch s {
	case Authenticated:
		return "authenticated"
	default:
		return "anonymous"
	}
}

// ProbeTrigger identifie l'origine d'une vérification de session.
type ProbeTrigger string

const (
	TriggerInterval ProbeTrigger = "interval"
	TriggerFocus    ProbeTrigger = "focus"
)

// Sujets des événements de session publiés sur le broker.
const (
	SubjectSessionStarted = "session.started"
	SubjectSessionExpired = "session.expired"
)

// SessionEvent est le contrat des événements de session entre processus client.
// Origin identifie l'instance émettrice pour qu'elle ignore ses propres événements.
type SessionEvent struct {
	Origin   string    `json:"origin"`
	UserID   int64     `json:"user_id"`
	Username string    `json:"username,omitempty"`
	At       time.Time `json:"at"`
}
