package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/koopa0/dialtools/internal/dial"
	"github.com/koopa0/dialtools/internal/tools"
)

var (
	callAPIKey       string
	callConversation string
)

var callCmd = &cobra.Command{
	Use:   "call <tool> [json-arguments]",
	Short: "Execute one tool and print its result",
	Long: `Executes a single tool invocation the way the conversation loop would:
progress output streams to stdout while the tool runs, and the resulting
tool message is printed as JSON at the end. The tool never fails the
command; failures are contained in the message content.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		tool, ok := a.registry.Get(args[0])
		if !ok {
			return fmt.Errorf("unknown tool %q, try 'dialtools tools'", args[0])
		}

		var arguments json.RawMessage
		if len(args) == 2 {
			if !json.Valid([]byte(args[1])) {
				return fmt.Errorf("arguments are not valid JSON")
			}
			arguments = json.RawMessage(args[1])
		}

		conversation := callConversation
		if conversation == "" {
			conversation = uuid.NewString()
		}
		apiKey := callAPIKey
		if apiKey == "" {
			apiKey = os.Getenv("DIAL_API_KEY")
		}

		stage := &printStage{w: os.Stdout}
		msg := tools.Execute(cmd.Context(), tool, &tools.CallParams{
			CallID:         uuid.NewString(),
			ToolName:       tool.Name(),
			Arguments:      arguments,
			APIKey:         apiKey,
			ConversationID: conversation,
			Stage:          stage,
			Choice:         stage,
		})

		encoded, err := json.MarshalIndent(msg, "", "  ")
		if err != nil {
			return err
		}
		fmt.Printf("\n--- tool message ---\n%s\n", encoded)
		return nil
	},
}

// printStage streams tool progress straight to the terminal.
type printStage struct {
	w io.Writer
}

func (s *printStage) AppendContent(content string) {
	fmt.Fprint(s.w, content)
}

func (s *printStage) AddAttachment(att dial.Attachment) {
	fmt.Fprintf(s.w, "\n[attachment] %s (%s)\n", att.Title, att.URL)
}

func init() {
	callCmd.Flags().StringVar(&callAPIKey, "api-key", "", "DIAL API key (default $DIAL_API_KEY)")
	callCmd.Flags().StringVar(&callConversation, "conversation", "", "conversation id scoping the document cache (default random)")
	rootCmd.AddCommand(callCmd)
}
