package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	api "github.com/oshokin/alarmee/internal/api/grpc/alarm"
	"github.com/oshokin/alarmee/internal/config"
	domain "github.com/oshokin/alarmee/internal/domain/alarm"
	"github.com/oshokin/alarmee/internal/eventbus"
	"github.com/oshokin/alarmee/internal/export/ical"
	"github.com/oshokin/alarmee/internal/logger"
	"github.com/oshokin/alarmee/internal/service/common"
)

// Options configures how the CLI reaches the alarm server.
type Options struct {
	// ConfigPath to YAML settings file, defaults to standard filename if empty.
	ConfigPath string

	// ServerAddress overrides server address from config when specified.
	ServerAddress string

	// Out receives command output; os.Stdout when nil.
	Out io.Writer
}

// ScheduleOptions describes an alarm to schedule.
type ScheduleOptions struct {
	Options

	// ID is generated when empty.
	ID       string
	Title    string
	Body     string
	FireAt   string
	Timezone string
	Repeat   string
	Every    time.Duration
	// Actions are "id" or "id:label" pairs.
	Actions  []string
	Icon     string
	Color    string
	Sound    string
	ImageURL string
	DeepLink string
	Channel  string
	Data     map[string]string
	Exact    bool
}

// errInvalidAction is returned for malformed --action values.
var errInvalidAction = errors.New("action must be id or id:label")

// connect loads settings and dials the server.
func connect(ctx context.Context, opts *Options) (*common.Client, error) {
	// Load settings from configuration file.
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	// Use server address from options if provided, otherwise use config.
	serverAddress := cfg.ServerAddress
	if opts.ServerAddress != "" {
		serverAddress = opts.ServerAddress
	}

	logger.DebugKV(ctx, "Connecting to alarm server", "server_address", serverAddress)

	return common.Dial(ctx, serverAddress, common.WithCallTimeout(cfg.Timeout))
}

func (o *Options) out() io.Writer {
	if o.Out == nil {
		return os.Stdout
	}

	return o.Out
}

// withClient runs fn with a connected client and closes it afterwards.
func withClient(ctx context.Context, opts *Options, fn func(*common.Client) error) error {
	client, err := connect(ctx, opts)
	if err != nil {
		return err
	}

	// Close connection on function exit.
	defer func() {
		_ = client.Close()
	}()

	return fn(client)
}

// Schedule sends one alarm and prints its normalized trigger.
func Schedule(ctx context.Context, opts *ScheduleOptions) error {
	ctx = logger.WithName(ctx, "alarmee-schedule")

	request, err := opts.request()
	if err != nil {
		return err
	}

	if origin, originErr := common.DetectOrigin(); originErr == nil {
		if request.Options.Data == nil {
			request.Options.Data = make(map[string]string, 1)
		}

		if _, ok := request.Options.Data[common.OriginDataKey]; !ok {
			request.Options.Data[common.OriginDataKey] = origin
		}
	} else {
		logger.DebugKV(ctx, "Origin unavailable", "error", originErr)
	}

	return withClient(ctx, &opts.Options, func(client *common.Client) error {
		trigger, scheduleErr := client.Schedule(ctx, request)
		if scheduleErr != nil {
			return scheduleErr
		}

		_, err = fmt.Fprintf(opts.out(), "%s\t%s\n", trigger.ID, describe(trigger, trigger.At))

		return err
	})
}

// request builds the domain request from flags.
func (o *ScheduleOptions) request() (*domain.Request, error) {
	actions, err := parseActions(o.Actions)
	if err != nil {
		return nil, err
	}

	repeat, err := domain.ParseRepeatPolicy(o.Repeat)
	if err != nil {
		return nil, err
	}

	request := &domain.Request{
		ID:       common.AlarmID(o.ID),
		Title:    o.Title,
		Body:     o.Body,
		Timezone: o.Timezone,
		Repeat:   repeat,
		Every:    o.Every,
		Actions:  actions,
		Options: domain.Options{
			Icon:     o.Icon,
			Color:    o.Color,
			Sound:    o.Sound,
			ImageURL: o.ImageURL,
			DeepLink: o.DeepLink,
			Channel:  o.Channel,
			Data:     o.Data,
		},
		Exact: o.Exact,
	}

	if o.Every > 0 && o.Repeat == "" {
		request.Repeat = domain.RepeatCustom
	}

	if o.FireAt != "" {
		fireAt, parseErr := domain.ParseLocalDateTime(o.FireAt)
		if parseErr != nil {
			return nil, parseErr
		}

		request.FireAt = &fireAt
	}

	return request, nil
}

func parseActions(values []string) ([]domain.Action, error) {
	actions := make([]domain.Action, 0, len(values))

	for _, value := range values {
		id, label, _ := strings.Cut(value, ":")
		if id = strings.TrimSpace(id); id == "" {
			return nil, fmt.Errorf("%w: %q", errInvalidAction, value)
		}

		actions = append(actions, domain.Action{ID: id, Label: strings.TrimSpace(label)})
	}

	return actions, nil
}

// Cancel cancels one alarm.
func Cancel(ctx context.Context, opts *Options, id string) error {
	ctx = logger.WithName(ctx, "alarmee-cancel")

	return withClient(ctx, opts, func(client *common.Client) error {
		if err := client.Cancel(ctx, id); err != nil {
			return err
		}

		logger.InfoKV(ctx, "Alarm cancelled", "alarm_id", id)

		return nil
	})
}

// CancelAll cancels every alarm.
func CancelAll(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "alarmee-cancel-all")

	return withClient(ctx, opts, func(client *common.Client) error {
		n, err := client.CancelAll(ctx)
		if err != nil {
			return err
		}

		_, err = fmt.Fprintf(opts.out(), "cancelled %d alarm(s)\n", n)

		return err
	})
}

// List prints scheduled alarms as a table.
func List(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "alarmee-list")

	return withClient(ctx, opts, func(client *common.Client) error {
		alarms, err := client.List(ctx)
		if err != nil {
			return err
		}

		return printList(opts.out(), alarms)
	})
}

func printList(w io.Writer, alarms []*api.ScheduledAlarm) error {
	table := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	_, _ = fmt.Fprintln(table, "ID\tTITLE\tREPEAT\tNEXT")

	for _, entry := range alarms {
		scheduled, err := api.ToDomainScheduled(entry)
		if err != nil || scheduled == nil {
			continue
		}

		next := "fired"
		if !scheduled.Next.IsZero() {
			next = describe(scheduled.Record.Trigger, scheduled.Next)
		}

		_, _ = fmt.Fprintf(table, "%s\t%s\t%s\t%s\n",
			scheduled.Record.Request.ID,
			scheduled.Record.Request.Title,
			scheduled.Record.Request.Policy(),
			next)
	}

	return table.Flush()
}

// describe renders an occurrence in the trigger's own timezone.
func describe(trigger *domain.Trigger, at time.Time) string {
	if trigger == nil {
		return at.Format(time.RFC3339)
	}

	return at.In(trigger.Location()).Format(time.RFC3339) + " " + string(trigger.Kind)
}

// Watch prints events until ctx is cancelled.
func Watch(ctx context.Context, opts *Options, types []string) error {
	ctx = logger.WithName(ctx, "alarmee-watch")

	filters, err := api.ToEventTypes(types)
	if err != nil {
		return err
	}

	return withClient(ctx, opts, func(client *common.Client) error {
		stream, watchErr := client.Watch(ctx, filters...)
		if watchErr != nil {
			return watchErr
		}

		for {
			event, recvErr := stream.Recv()

			switch {
			case recvErr == nil:
			case errors.Is(recvErr, io.EOF), ctx.Err() != nil:
				return nil
			default:
				return fmt.Errorf("receive event: %w", recvErr)
			}

			_, _ = fmt.Fprintln(opts.out(), formatEvent(event))
		}
	})
}

func formatEvent(event *eventbus.Event) string {
	stamp := event.Time.Format(time.RFC3339)

	switch event.Type {
	case eventbus.TypeAlarmFired:
		title := ""
		if event.Notification != nil {
			title = event.Notification.Title
		}

		return fmt.Sprintf("%s\t%s\t%s\t%s", stamp, event.Type, event.AlarmID, title)
	case eventbus.TypeNotificationAction:
		return fmt.Sprintf("%s\t%s\t%s\t%s", stamp, event.Type, event.AlarmID, event.ActionID)
	case eventbus.TypePushToken:
		return fmt.Sprintf("%s\t%s\t%s", stamp, event.Type, event.Token)
	default:
		return fmt.Sprintf("%s\t%s", stamp, event.Type)
	}
}

// Export writes scheduled alarms as iCalendar to path, or to Out when path is "-" or empty.
func Export(ctx context.Context, opts *Options, path string) error {
	ctx = logger.WithName(ctx, "alarmee-export")

	return withClient(ctx, opts, func(client *common.Client) error {
		alarms, err := client.List(ctx)
		if err != nil {
			return err
		}

		entries := make([]*domain.Scheduled, 0, len(alarms))

		for _, alarm := range alarms {
			entry, convertErr := api.ToDomainScheduled(alarm)
			if convertErr != nil {
				logger.WarnKV(ctx, "Skipping undecodable alarm", "error", convertErr)

				continue
			}

			if entry != nil {
				entries = append(entries, entry)
			}
		}

		if path == "" || path == "-" {
			return ical.Encode(opts.out(), entries, time.Now())
		}

		file, err := os.OpenFile(filepath.Clean(path), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, config.DefaultFilePermissions)
		if err != nil {
			return fmt.Errorf("create calendar file: %w", err)
		}

		if err = ical.Encode(file, entries, time.Now()); err != nil {
			_ = file.Close()

			return err
		}

		logger.InfoKV(ctx, "Calendar exported", "path", path, "alarms", len(entries))

		return file.Close()
	})
}

// ReportAction forwards a notification action tap, as a host app would.
func ReportAction(ctx context.Context, opts *Options, alarmID, actionID string) error {
	ctx = logger.WithName(ctx, "alarmee-action")

	return withClient(ctx, opts, func(client *common.Client) error {
		return client.ReportAction(ctx, alarmID, actionID)
	})
}

// ReportPushToken forwards a refreshed push token, as a host app would.
func ReportPushToken(ctx context.Context, opts *Options, token string) error {
	ctx = logger.WithName(ctx, "alarmee-token")

	return withClient(ctx, opts, func(client *common.Client) error {
		return client.ReportPushToken(ctx, token)
	})
}
