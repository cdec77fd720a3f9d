package main

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/codename-co/devs-sub002/internal/orchestrator"
	"github.com/codename-co/devs-sub002/internal/signals"
	"github.com/codename-co/devs-sub002/internal/state"
	"github.com/codename-co/devs-sub002/pkg/models"
)

// maxAttachmentSize bounds a single attached file.
const maxAttachmentSize = 10 << 20

var (
	runTaskID  string
	runQuiet   bool
	runAttach  []string
	runOutDir  string
	runShowAll bool
)

var runCmd = &cobra.Command{
	Use:   "run [prompt]",
	Short: "Run a work request with a team of agents",
	Long: `Run a work request to completion.

The request is analyzed first. Simple requests run as one task with the best
matching agent. Complex requests are broken down into subtasks that run in
dependency order, several at a time, and are reviewed by the validator agent.

Examples:
  devs run "Write a blog post about our new pricing"
  devs run --attach brief.md "Turn this brief into a launch plan"
  devs run --task 6f1c...   # resume a pending task or replay a finished one

Press Ctrl+C or run 'devs kill' from another terminal to stop a run.`,
	Args: cobra.ArbitraryArgs,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runTaskID, "task", "", "ID of an existing task to resume or replay")
	runCmd.Flags().BoolVarP(&runQuiet, "quiet", "q", false, "Do not print progress events")
	runCmd.Flags().StringSliceVarP(&runAttach, "attach", "a", nil, "Files to attach to the request")
	runCmd.Flags().StringVarP(&runOutDir, "output", "o", "", "Directory to write artifacts to")
	runCmd.Flags().BoolVar(&runShowAll, "full", false, "Print full artifact content")
}

func runRun(cmd *cobra.Command, args []string) error {
	prompt := strings.TrimSpace(strings.Join(args, " "))
	if prompt == "" && runTaskID == "" {
		return errors.New("a prompt or --task is required")
	}
	if len(runAttach) > 0 && runTaskID != "" {
		return errors.New("--attach cannot be combined with --task")
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()
	ctx, stopKill, err := signals.WithKillSwitch(ctx, cfg.SignalsDir())
	if err != nil {
		return err
	}
	defer stopKill()

	a, err := newApp(ctx, cfg, !runQuiet)
	if err != nil {
		return err
	}
	defer a.Close()

	taskID := runTaskID
	if len(runAttach) > 0 {
		attachments, err := readAttachments(runAttach)
		if err != nil {
			return err
		}
		task, err := createPendingTask(ctx, a.db, prompt, attachments)
		if err != nil {
			return err
		}
		taskID = task.ID
	}

	var done chan struct{}
	if a.events != nil {
		done = make(chan struct{})
		go func() {
			defer close(done)
			consumeEvents(os.Stdout, a.events.Events())
		}()
	}

	result, err := a.orch.Orchestrate(ctx, prompt, taskID)
	if a.events != nil {
		a.events.Close()
		<-done
		if n := a.events.DroppedCount(); n > 0 {
			a.logger.Log("dropped %d progress events", n)
		}
	}
	if err != nil {
		return explainRunError(ctx, err)
	}

	printResult(os.Stdout, result, runShowAll)

	if runOutDir != "" {
		paths, err := writeArtifactFiles(runOutDir, result.Artifacts)
		if err != nil {
			return err
		}
		for _, p := range paths {
			printStatus("→", p, color.FgCyan)
		}
	}

	if a.client != nil {
		tracker := a.client.Tracker()
		in, out := tracker.Total()
		fmt.Printf("\n%d calls, %d input / %d output tokens (~$%.4f)\n", tracker.Calls(), in, out, tracker.Cost())
	}

	if len(result.Errors) > 0 && cfg.Orchestrator.StrictCompletion {
		return fmt.Errorf("%d task(s) failed", len(result.Errors))
	}
	return nil
}

// explainRunError turns orchestrator errors into actionable messages.
func explainRunError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, orchestrator.ErrNoProviderConfigured):
		return fmt.Errorf("%w\n\nSet ANTHROPIC_API_KEY, run 'devs config anthropic.api_key <key>', or enable Bedrock with 'devs config anthropic.use_bedrock true'", err)
	case errors.Is(err, orchestrator.ErrAlreadyInProgress):
		return fmt.Errorf("%w\n\nThe same request is already running in this process", err)
	case errors.Is(context.Cause(ctx), signals.ErrKilled):
		return fmt.Errorf("run stopped by 'devs kill': %w", err)
	case ctx.Err() != nil:
		return fmt.Errorf("run interrupted: %w", err)
	}
	return err
}

// readAttachments loads files to send with the request.
func readAttachments(paths []string) ([]models.Attachment, error) {
	out := make([]models.Attachment, 0, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("attachment %s: %w", p, err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("attachment %s is a directory", p)
		}
		if info.Size() > maxAttachmentSize {
			return nil, fmt.Errorf("attachment %s is larger than %d MB", p, maxAttachmentSize>>20)
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read attachment %s: %w", p, err)
		}
		out = append(out, models.Attachment{
			Name:      filepath.Base(p),
			MediaType: mediaType(p, data),
			Data:      data,
		})
	}
	return out, nil
}

// mediaType guesses from the extension, then from the content.
func mediaType(path string, data []byte) string {
	if mt := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); mt != "" {
		if base, _, err := mime.ParseMediaType(mt); err == nil {
			return base
		}
		return mt
	}
	mt := http.DetectContentType(data)
	if base, _, err := mime.ParseMediaType(mt); err == nil {
		return base
	}
	return mt
}

// createPendingTask stores the request with its attachments so the
// orchestrator adopts it as the main task.
func createPendingTask(ctx context.Context, db *state.DB, prompt string, attachments []models.Attachment) (*models.Task, error) {
	task := &models.Task{
		ID:          uuid.NewString(),
		Title:       taskTitle(prompt),
		Description: prompt,
		Status:      models.TaskStatusPending,
		Attachments: attachments,
	}
	if err := db.CreateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return task, nil
}

// taskTitle is the first line of prompt, shortened for listings.
func taskTitle(prompt string) string {
	title, _, _ := strings.Cut(strings.TrimSpace(prompt), "\n")
	if r := []rune(title); len(r) > 80 {
		title = string(r[:77]) + "..."
	}
	return title
}

// printStatus prints a colored symbol followed by a message.
func printStatus(symbol, message string, colorAttr color.Attribute) {
	c := color.New(colorAttr)
	fmt.Printf("%s %s\n", c.Sprint(symbol), message)
}
