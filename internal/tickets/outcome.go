package tickets

// Outcome reports what happened to one draft or finding.
type Outcome struct {
	// Ref is the finding key or the spreadsheet label the outcome belongs to.
	Ref       string `json:"ref"`
	Summary   string `json:"summary,omitempty"`
	TicketKey string `json:"ticket_key,omitempty"`
	// Created is false when the ticket already existed or submission failed.
	Created bool  `json:"created"`
	Err     error `json:"-"`
}

// Failed reports whether the outcome carries an error.
func (o Outcome) Failed() bool {
	return o.Err != nil
}
