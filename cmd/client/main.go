// Command client runs one scripted conversation against a running
// backend: create a chat, subscribe to its event stream, send a
// message, then watch the bot answer live. The final timeline is
// rendered as tables, which makes it a quick smoke test of the whole
// pipeline.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/Netflix/go-env"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"

	"chat-backend/client"
	"chat-backend/domain"
	"chat-backend/domain/event"
	"chat-backend/projection"
)

type Config struct {
	BaseURL     string        `env:"BASE_URL,default=http://localhost:8080"`
	UserID      string        `env:"USER_ID,default=alice"`
	Message     string        `env:"MESSAGE,default=Hello bot!"`
	WaitTimeout time.Duration `env:"WAIT_TIMEOUT,default=30s"`
}

func main() {
	// 1. Load config
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		log.Fatalf("Config error: %v", err)
	}

	ctx := context.Background()
	api := client.New(config.BaseURL)

	// 2. Create the chat and subscribe before talking, so no event is missed
	chat, err := api.CreateChat(ctx, []string{config.UserID})
	if err != nil {
		log.Fatalf("Failed to create chat: %v", err)
	}
	color.Green.Printf("Chat %s created for %s\n", chat.ChatID, config.UserID)

	stream, err := api.StreamEvents(ctx, chat.ChatID)
	if err != nil {
		log.Fatalf("Failed to subscribe: %v", err)
	}
	defer stream.Close()

	if err := api.SendMessage(ctx, chat.ChatID, config.UserID, domain.KindText, config.Message); err != nil {
		log.Fatalf("Failed to send message: %v", err)
	}
	color.Cyan.Printf("%s: %s\n", config.UserID, config.Message)

	// 3. Fold the live stream until the bot goes back offline
	timeline := projection.NewTimeline(config.UserID)
	deadline := time.Now().Add(config.WaitTimeout)

	for time.Now().Before(deadline) {
		envelope, err := stream.NextWithin(time.Until(deadline))
		if err != nil {
			color.Red.Printf("Stream ended: %v\n", err)
			break
		}
		if err := timeline.Apply(envelope); err != nil {
			color.Red.Printf("Skipping frame: %v\n", err)
			continue
		}
		printEvent(envelope, timeline)

		bot := timeline.Presence[domain.BotUserID]
		if bot.Status == domain.StatusOffline && len(timeline.Messages) > 0 {
			break
		}
	}

	// 4. Render what this subscriber observed
	color.Green.Println("\n=== Timeline ===")
	renderMessages(timeline)
	color.Green.Println("\n=== Presence ===")
	renderPresence(timeline)
}

func printEvent(envelope event.RawEnvelope, timeline *projection.Timeline) {
	switch envelope.Event {
	case event.TypeMessageReceived:
		msg := timeline.Messages[len(timeline.Messages)-1]
		color.Cyan.Printf("%s [%s]: %s\n", msg.SenderID, msg.Kind, msg.Content)
	case event.TypePresenceUpdated:
		bot := timeline.Presence[domain.BotUserID]
		color.Yellow.Printf("-- %s is %s\n", domain.BotUserID, bot.Status)
	case event.TypeChatRead:
		color.Yellow.Printf("-- %s read the chat\n", domain.BotUserID)
	}
}

func renderMessages(timeline *projection.Timeline) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Sender", "Kind", "Content", "At"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	for _, msg := range timeline.Messages {
		table.Append([]string{
			msg.ID.String()[:8],
			msg.SenderID,
			string(msg.Kind),
			msg.Content,
			msg.CreatedAt.Format("15:04:05"),
		})
	}
	table.Render()
}

func renderPresence(timeline *projection.Timeline) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"User", "Status", "Last seen"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	for user, presence := range timeline.Presence {
		table.Append([]string{user, string(presence.Status), presence.LastSeen.Format(time.RFC822)})
	}
	table.Render()

	fmt.Println()
}
