package modal

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAwaitDelivered(t *testing.T) {
	a := NewAwaiter()
	id := NewCustomID("logging")
	require.True(t, strings.HasPrefix(id, "logging:"))
	a.Register(id)

	go func() {
		a.Deliver(id, Submission{Values: map[string]string{"join": "welcome"}})
	}()

	sub, err := a.Await(context.Background(), id, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "welcome", sub.Value("join"))
	assert.Equal(t, 0, a.Pending())
}

func TestAwaitTimeout(t *testing.T) {
	a := NewAwaiter()
	id := NewCustomID("logging")
	a.Register(id)

	_, err := a.Await(context.Background(), id, 10*time.Millisecond)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, 0, a.Pending())
	assert.False(t, a.Deliver(id, Submission{}), "late submissions are dropped")
}

func TestAwaitUnregistered(t *testing.T) {
	_, err := NewAwaiter().Await(context.Background(), "nope", time.Second)
	assert.Error(t, err)
}

func TestValues(t *testing.T) {
	data := discordgo.ModalSubmitInteractionData{
		CustomID: "x",
		Components: []discordgo.MessageComponent{
			&discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				&discordgo.TextInput{CustomID: "join", Value: "  hello  "},
			}},
			&discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				&discordgo.TextInput{CustomID: "ping", Value: "yes"},
			}},
		},
	}
	assert.Equal(t, map[string]string{"join": "hello", "ping": "yes"}, Values(data))
}

func TestResponse(t *testing.T) {
	resp := Response("id", "Title", []Field{{ID: "a", Label: "A", Paragraph: true, Required: true}})
	assert.Equal(t, discordgo.InteractionResponseModal, resp.Type)
	require.Len(t, resp.Data.Components, 1)
	row := resp.Data.Components[0].(discordgo.ActionsRow)
	input := row.Components[0].(discordgo.TextInput)
	assert.Equal(t, discordgo.TextInputParagraph, input.Style)
}
