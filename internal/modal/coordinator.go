package modal

import "practice-service/internal/session"

// ModalID names a user-facing dialog. The coordinator holds no business
// state beyond which modal, if any, is currently open.
type ModalID string

const (
	ModalNone              ModalID = "none"
	ModalExitConfirm       ModalID = "exit_confirm"
	ModalHeartsExhausted   ModalID = "hearts_exhausted"
	ModalPracticeExplainer ModalID = "practice_explainer"
)

// ForStatus maps a controller status to the modal it warrants.
func ForStatus(status session.Status) ModalID {
	if status == session.StatusHeartsExhausted {
		return ModalHeartsExhausted
	}
	return ModalNone
}

type Coordinator struct {
	current ModalID
}

func NewCoordinator() *Coordinator {
	return &Coordinator{current: ModalNone}
}

func (c *Coordinator) Show(id ModalID) {
	c.current = id
}

func (c *Coordinator) Dismiss() {
	c.current = ModalNone
}

func (c *Coordinator) Current() ModalID {
	return c.current
}
