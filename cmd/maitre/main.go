// Command maitre is a terminal client for the conversational ordering
// agent. It renders the conversation state produced by the client core and
// forwards typed input, with voice mode toggled at runtime.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	client "github.com/relishlabs/maitre-client/core"
	"github.com/relishlabs/maitre-client/core/audio/miniaudio"
	"github.com/relishlabs/maitre-client/core/conversation"
	"github.com/relishlabs/maitre-client/core/transport"
)

type conversationMsg conversation.State

type channelStatusMsg struct {
	source transport.Source
	status transport.Status
}

type turnStateMsg client.TurnState

type micLevelMsg float64

type clientErrMsg struct{ err error }

func main() {
	var program *tea.Program
	send := func(msg tea.Msg) {
		if program != nil {
			program.Send(msg)
		}
	}

	options := []client.ClientOption{
		client.WithStatusCallback(func(source transport.Source, status transport.Status) {
			send(channelStatusMsg{source: source, status: status})
		}),
		client.WithTurnStateCallback(func(state client.TurnState) {
			send(turnStateMsg(state))
		}),
		client.WithMicLevelCallback(func(level float64) {
			send(micLevelMsg(level))
		}),
		client.WithErrorCallback(func(err error) {
			send(clientErrMsg{err: err})
		}),
	}
	if language, ok := os.LookupEnv("MAITRE_LANGUAGE"); ok {
		options = append(options, client.WithLanguage(language))
	}

	audioDevice, err := miniaudio.NewClient()
	if err != nil {
		// Text-only sessions still work without audio hardware.
		fmt.Fprintf(os.Stderr, "audio unavailable: %v\n", err)
	} else {
		defer audioDevice.Close()
		options = append(options, client.WithAudioDevice(audioDevice))
	}

	c, err := client.New(options...)
	if err != nil {
		log.Fatalf("failed to assemble client: %v", err)
	}
	defer c.Close()

	cancel := c.SubscribeConversation(func(state conversation.State) {
		send(conversationMsg(state))
	})
	defer cancel()

	if err := c.Connect(context.Background()); err != nil {
		log.Fatalf("failed to connect: %v", err)
	}

	program = tea.NewProgram(newModel(c), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		log.Fatalf("failed to run program: %v", err)
	}
}
