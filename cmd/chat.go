package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/urfave/cli/v3"

	"github.com/xhad/wellai/internal/models"
)

var cmdChat = &cli.Command{
	Name:   "chat",
	Usage:  "Chat with the medical library in the terminal",
	Action: chat,
}

func chat(ctx context.Context, cmd *cli.Command) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.logger.Sync()

	bot, vectorStore, _, err := buildChat(ctx, a)
	if err != nil {
		return err
	}
	defer vectorStore.Close()

	color.Cyan("\nAsk a medical question (type 'exit' to quit, '/clear' to forget the conversation)")
	color.Yellow("This assistant provides general medical information. Always consult a licensed healthcare provider.")

	scanner := bufio.NewScanner(os.Stdin)
	userPrompt := color.New(color.FgGreen).PrintfFunc()
	assistantPrompt := color.New(color.FgCyan).PrintfFunc()

	var history []models.ConversationTurn
	for {
		userPrompt("\nYou: ")
		if !scanner.Scan() {
			break
		}

		query := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(query) {
		case "":
			continue
		case "exit":
			return nil
		case "/clear":
			history = nil
			color.Green("History cleared!")
			continue
		}

		spinner := getSpinner("🔍 Searching the medical library...")
		answer, err := bot.Respond(ctx, query, history)
		spinner.Finish()
		fmt.Print("\r")

		if err != nil {
			color.Red("Error: %v\n", err)
			continue
		}

		history = append(history, models.ConversationTurn{Question: query, Answer: answer})
		assistantPrompt("WellAI: %s\n", answer)
	}

	return scanner.Err()
}
