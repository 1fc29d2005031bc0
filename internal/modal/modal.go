// Package modal presents Discord modals and lets a command handler wait for the submission.
package modal

import (
	"context"
	"strings"
	"sync"
	"time"

	"emperror.dev/errors"
	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
)

var ErrTimeout = errors.New("modal timed out")

type Field struct {
	ID          string
	Label       string
	Placeholder string
	Value       string
	Paragraph   bool
	Required    bool
	MaxLength   int
}

type Submission struct {
	Interaction *discordgo.Interaction
	Values      map[string]string
}

func (s Submission) Value(id string) string {
	return s.Values[id]
}

// Awaiter routes modal submissions back to the handler that opened the modal.
type Awaiter struct {
	mu      sync.Mutex
	pending map[string]chan Submission
}

func NewAwaiter() *Awaiter {
	return &Awaiter{pending: make(map[string]chan Submission)}
}

func NewCustomID(prefix string) string {
	return prefix + ":" + uuid.NewString()
}

// Register must be called before the modal is shown so an early submission is not lost.
func (a *Awaiter) Register(customID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pending[customID] = make(chan Submission, 1)
}

// Deliver hands a submission to its waiter. It reports false when nobody is waiting anymore.
func (a *Awaiter) Deliver(customID string, sub Submission) bool {
	a.mu.Lock()
	ch, ok := a.pending[customID]
	delete(a.pending, customID)
	a.mu.Unlock()
	if !ok {
		return false
	}
	ch <- sub
	return true
}

// Await blocks until the submission for customID arrives, ctx ends or timeout elapses.
func (a *Awaiter) Await(ctx context.Context, customID string, timeout time.Duration) (Submission, error) {
	a.mu.Lock()
	ch, ok := a.pending[customID]
	a.mu.Unlock()
	if !ok {
		return Submission{}, errors.Errorf("modal %s was not registered", customID)
	}
	defer a.forget(customID)

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	select {
	case sub := <-ch:
		return sub, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Submission{}, ErrTimeout
		}
		return Submission{}, ctx.Err()
	}
}

// Cancel drops a registered modal that will never be shown.
func (a *Awaiter) Cancel(customID string) {
	a.forget(customID)
}

func (a *Awaiter) forget(customID string) {
	a.mu.Lock()
	delete(a.pending, customID)
	a.mu.Unlock()
}

// Pending reports how many modals are still waiting.
func (a *Awaiter) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending)
}

// Response builds the interaction response that opens the modal.
func Response(customID, title string, fields []Field) *discordgo.InteractionResponse {
	rows := make([]discordgo.MessageComponent, 0, len(fields))
	for _, field := range fields {
		style := discordgo.TextInputShort
		if field.Paragraph {
			style = discordgo.TextInputParagraph
		}
		rows = append(rows, discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.TextInput{
				CustomID:    field.ID,
				Label:       field.Label,
				Style:       style,
				Placeholder: field.Placeholder,
				Value:       field.Value,
				Required:    field.Required,
				MaxLength:   field.MaxLength,
			},
		}})
	}
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID:   customID,
			Title:      title,
			Components: rows,
		},
	}
}

// Values flattens the text inputs of a modal submission into id -> trimmed value.
func Values(data discordgo.ModalSubmitInteractionData) map[string]string {
	values := make(map[string]string)
	for _, component := range data.Components {
		row, ok := component.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, inner := range row.Components {
			if input, ok := inner.(*discordgo.TextInput); ok {
				values[input.CustomID] = strings.TrimSpace(input.Value)
			}
		}
	}
	return values
}
