package slack

import (
	"fmt"

	goslack "github.com/slack-go/slack"
)

const maxBlockTextLength = 2900

// EscalationOpenedInput contains data for an escalation-opened notification.
type EscalationOpenedInput struct {
	EscalationID string
	TaskID       string
	Stage        string
	Reason       string
}

// EscalationResolvedInput contains data for an escalation's terminal
// notification — either resolved (a human supplied a resolution) or
// aborted (a human decided the task itself should stop).
type EscalationResolvedInput struct {
	EscalationID string
	TaskID       string
	Stage        string
	Status       string // "resolved" | "aborted"
	Resolution   string
	ThreadTS     string // cached from the opened notification
}

func taskURL(taskID, dashboardURL string) string {
	return fmt.Sprintf("%s/tasks/%s", dashboardURL, taskID)
}

// BuildEscalationOpenedMessage creates Block Kit blocks announcing a new
// escalation, per spec.md §4.10: a task's pipeline has suspended pending
// human intervention.
func BuildEscalationOpenedMessage(input EscalationOpenedInput, dashboardURL string) []goslack.Block {
	url := taskURL(input.TaskID, dashboardURL)
	text := fmt.Sprintf(
		":rotating_light: *Escalation on stage %q* — %s\n<%s|View task %s>",
		input.Stage, truncateForSlack(input.Reason), url, input.EscalationID,
	)
	return []goslack.Block{
		goslack.NewSectionBlock(
			goslack.NewTextBlockObject(goslack.MarkdownType, text, false, false),
			nil, nil,
		),
	}
}

// BuildEscalationResolvedMessage creates Block Kit blocks for an
// escalation's terminal notification.
func BuildEscalationResolvedMessage(input EscalationResolvedInput, dashboardURL string) []goslack.Block {
	emoji := ":white_check_mark:"
	label := "Escalation Resolved"
	if input.Status == "aborted" {
		emoji = ":no_entry_sign:"
		label = "Escalation Aborted"
	}

	headerText := fmt.Sprintf("%s *%s* (stage %q)", emoji, label, input.Stage)
	var blocks []goslack.Block
	blocks = append(blocks, goslack.NewSectionBlock(
		goslack.NewTextBlockObject(goslack.MarkdownType, headerText, false, false),
		nil, nil,
	))
	if input.Resolution != "" {
		blocks = append(blocks, goslack.NewSectionBlock(
			goslack.NewTextBlockObject(goslack.MarkdownType, truncateForSlack(input.Resolution), false, false),
			nil, nil,
		))
	}

	url := taskURL(input.TaskID, dashboardURL)
	btn := goslack.NewButtonBlockElement("", "", goslack.NewTextBlockObject(goslack.PlainTextType, "View Task", false, false))
	btn.URL = url
	blocks = append(blocks, goslack.NewActionBlock("", btn))

	return blocks
}

func truncateForSlack(text string) string {
	if len(text) <= maxBlockTextLength {
		return text
	}
	return text[:maxBlockTextLength] + "\n\n_... (truncated — view full detail in dashboard)_"
}
