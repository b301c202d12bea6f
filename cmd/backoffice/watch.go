package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/backoffice/internal/client"
	"github.com/alfredjeanlab/backoffice/internal/events"
	"github.com/alfredjeanlab/backoffice/internal/listing"
	"github.com/alfredjeanlab/backoffice/internal/tui"
	"github.com/alfredjeanlab/backoffice/internal/ui"
)

// change is one event seen by watch. An empty topic asks for a resync after
// the event source reconnected.
type change struct {
	topic string
	data  []byte
}

// changeSource feeds changes into out until ctx is done or the source fails.
type changeSource func(ctx context.Context, out chan<- change) error

var watchCmd = &cobra.Command{
	Use:   "watch [users|products]",
	Short: "Follow changes as they happen",
	Long: `Follow changes as they happen. Events come from NATS when a NATS URL is
known (--nats, BACKOFFICE_NATS_URL or the active remote) and from the
server's event stream otherwise.

With --list the list view given by the list flags is printed once and then
re-queried after every burst of changes; only new or changed rows are shown.`,
	GroupID:   "views",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: listing.Entities(),
	RunE: func(cmd *cobra.Command, args []string) error {
		entity := ""
		if len(args) == 1 {
			entity = args[0]
			if _, ok := listing.Config(entity); !ok {
				return fmt.Errorf("unknown entity %q (want users or products)", entity)
			}
		}
		listMode, _ := cmd.Flags().GetBool("list")
		if listMode && entity == "" {
			return fmt.Errorf("--list needs an entity")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		var refresh func(context.Context) error
		if listMode {
			state, err := listState(ctx, cmd, entity)
			if err != nil {
				return err
			}
			load, err := pageLoader(entity)
			if err != nil {
				return err
			}
			refresh = rowPrinter(cmd.OutOrStdout(), load, state.Encode())
			if err := refresh(ctx); err != nil {
				return err
			}
		}

		natsURL, _ := cmd.Flags().GetString("nats")
		if natsURL == "" {
			natsURL = os.Getenv("BACKOFFICE_NATS_URL")
		}
		if natsURL == "" {
			natsURL = activeRemoteNATSURL()
		}
		var source changeSource
		if natsURL != "" {
			source = natsChanges(natsURL, entity)
		} else {
			source = streamChanges(api, entity)
		}
		return watchLoop(ctx, cmd.OutOrStdout(), source, refresh)
	},
}

// watchLoop prints every change, or, when refresh is set, calls it once a
// burst of changes has settled.
func watchLoop(ctx context.Context, w io.Writer, source changeSource, refresh func(context.Context) error) error {
	changes := make(chan change, 64)
	errc := make(chan error, 1)
	go func() { errc <- source(ctx, changes) }()

	debounce := time.NewTimer(0)
	debounce.Stop()
	select {
	case <-debounce.C:
	default:
	}

	handle := func(c change) {
		switch {
		case refresh != nil && c.topic == "":
			debounce.Reset(0)
		case refresh != nil:
			debounce.Reset(200 * time.Millisecond)
		case c.topic != "":
			fmt.Fprintln(w, describeChange(time.Now(), c))
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errc:
			if ctx.Err() != nil {
				return nil
			}
			// Print what arrived before the source ended.
		drain:
			for {
				select {
				case c := <-changes:
					handle(c)
				default:
					break drain
				}
			}
			return err
		case c := <-changes:
			handle(c)
		case <-debounce.C:
			if err := refresh(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	}
}

// natsChanges subscribes to the entity's subject, or every backoffice
// subject when entity is empty.
func natsChanges(natsURL, entity string) changeSource {
	return func(ctx context.Context, out chan<- change) error {
		resync := make(chan struct{}, 1)
		bus, err := events.Dial(natsURL, "backoffice-watch",
			nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
				slog.Warn("nats: disconnected", "error", err)
			}),
			nats.ReconnectHandler(func(_ *nats.Conn) {
				slog.Info("nats: reconnected")
				select {
				case resync <- struct{}{}:
				default:
				}
			}),
		)
		if err != nil {
			return err
		}
		defer bus.Close()

		topic := events.TopicAll
		if entity != "" {
			topic = events.EntityTopic(entity)
		}
		ch, err := bus.Subscribe(ctx, topic)
		if err != nil {
			return err
		}

		for {
			var c change
			select {
			case <-ctx.Done():
				return nil
			case msg, ok := <-ch:
				if !ok {
					return nil
				}
				c = change{topic: msg.Topic, data: msg.Data}
			case <-resync:
			}
			select {
			case out <- c:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// streamChanges follows the server's event stream.
func streamChanges(c client.BackofficeClient, entity string) changeSource {
	return func(ctx context.Context, out chan<- change) error {
		q := url.Values{}
		if entity != "" {
			q.Set("entity", entity)
		}
		return c.Stream(ctx, q, func(ev client.StreamEvent) error {
			select {
			case out <- change{topic: ev.Topic, data: ev.Data}:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}
}

// rowPrinter returns a refresh that loads the list view and prints the rows
// that are new or changed since the previous call. Rows are keyed by their
// first column, the record ID.
func rowPrinter(w io.Writer, load tui.Loader, q url.Values) func(context.Context) error {
	seen := make(map[string]string)
	return func(ctx context.Context) error {
		page, err := load(ctx, q)
		if err != nil {
			return err
		}
		var changed [][]string
		for _, r := range page.Rows {
			if len(r) == 0 {
				continue
			}
			joined := strings.Join(r, "\x00")
			if seen[r[0]] != joined {
				changed = append(changed, r)
			}
			seen[r[0]] = joined
		}
		if len(changed) > 0 {
			printTable(w, page.Columns, changed)
			fmt.Fprintln(w)
		}
		return nil
	}
}

// changePayload picks the identifying fields out of any event payload.
type changePayload struct {
	User *struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
	Product *struct {
		ID  string `json:"id"`
		SKU string `json:"sku"`
	} `json:"product"`
	View *struct {
		Entity string `json:"entity"`
		Name   string `json:"name"`
	} `json:"view"`
	UserID    string `json:"user_id"`
	ProductID string `json:"product_id"`
	Verified  *bool  `json:"verified"`
	Active    *bool  `json:"active"`
	Entity    string `json:"entity"`
	Name      string `json:"name"`
}

// describeChange renders one change as a single line, e.g.
// "15:04:05 product.activated prd-abc active".
func describeChange(at time.Time, c change) string {
	var p changePayload
	_ = json.Unmarshal(c.data, &p)

	var parts []string
	switch {
	case p.User != nil:
		parts = append(parts, p.User.ID, p.User.Email)
	case p.Product != nil:
		parts = append(parts, p.Product.ID, p.Product.SKU)
	case p.View != nil:
		parts = append(parts, p.View.Entity+"/"+p.View.Name)
	case p.UserID != "":
		parts = append(parts, p.UserID)
	case p.ProductID != "":
		parts = append(parts, p.ProductID)
	case p.Entity != "":
		parts = append(parts, p.Entity+"/"+p.Name)
	}
	if p.Verified != nil {
		parts = append(parts, ui.RenderFlag(*p.Verified, "verified", "unverified"))
	}
	if p.Active != nil {
		parts = append(parts, ui.RenderFlag(*p.Active, "active", "inactive"))
	}

	topic := strings.TrimPrefix(c.topic, "backoffice.")
	line := ui.RenderMuted(at.Format("15:04:05")) + " " + ui.RenderAccent(topic)
	for _, s := range parts {
		if s != "" {
			line += " " + s
		}
	}
	return line
}

func init() {
	addListFlags(watchCmd, listing.Entities()...)
	watchCmd.Flags().Bool("list", false, "re-print changed rows of the list view instead of events")
	watchCmd.Flags().String("nats", "", "NATS URL to subscribe to (default: server event stream)")
}
