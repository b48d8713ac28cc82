// Command dialinctl manages the Daily domain's dial-in setup: phone numbers,
// the pinless dial-in webhook and SIP-enabled rooms.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"q-pipecat/internal/clients/daily"
	"q-pipecat/internal/config"
	"q-pipecat/internal/observability"
)

const requestTimeout = 30 * time.Second

var errUsage = errors.New("usage error")

const usage = `usage: dialinctl <command> [flags]

commands:
  numbers-available [-area-code CODE]   list numbers that can be bought
  numbers-purchased                     list numbers owned by the domain
  numbers-buy [-number NUMBER]          buy a number (Daily picks one when empty)
  pinless-config -webhook URL [-phone NUMBER] [-prefix PREFIX] [-hmac SECRET]
                                        point pinless dial-in at the provisioning service
  sip-room -name NAME [-display NAME]   create or update a dial-in room
  delete-room -name NAME                delete a room
`

// Admin is the subset of the Daily client the commands use
type Admin interface {
	ListAvailableNumbers(ctx context.Context, areaCode string) ([]daily.PhoneNumber, error)
	ListPurchasedNumbers(ctx context.Context) ([]daily.PhoneNumber, error)
	BuyNumber(ctx context.Context, number string) (daily.PhoneNumber, error)
	ConfigurePinlessDialin(ctx context.Context, entries ...daily.PinlessDialin) (map[string]interface{}, error)
	UpsertSIPRoom(ctx context.Context, name, displayName string) (daily.Room, error)
	DeleteRoom(ctx context.Context, name string) error
}

func main() {
	cfg, err := config.LoadDaily()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := observability.NewLoggerWithLevel("warn")
	defer logger.Sync()

	client := daily.NewClient(cfg, logger)
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	if err := run(ctx, os.Args[1:], client, os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
		}
		fmt.Fprintf(os.Stderr, "dialinctl: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, admin Admin, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: missing command", errUsage)
	}

	cmd, args := args[0], args[1:]
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	switch cmd {
	case "numbers-available":
		areaCode := fs.String("area-code", "", "Area code to search")
		if err := parse(fs, args); err != nil {
			return err
		}
		numbers, err := admin.ListAvailableNumbers(ctx, *areaCode)
		if err != nil {
			return err
		}
		return printJSON(out, numbers)

	case "numbers-purchased":
		if err := parse(fs, args); err != nil {
			return err
		}
		numbers, err := admin.ListPurchasedNumbers(ctx)
		if err != nil {
			return err
		}
		return printJSON(out, numbers)

	case "numbers-buy":
		number := fs.String("number", "", "Number to buy")
		if err := parse(fs, args); err != nil {
			return err
		}
		bought, err := admin.BuyNumber(ctx, *number)
		if err != nil {
			return err
		}
		return printJSON(out, bought)

	case "pinless-config":
		webhook := fs.String("webhook", "", "Room creation webhook, e.g. https://host/daily_start_bot")
		phone := fs.String("phone", "", "Purchased number to route")
		prefix := fs.String("prefix", "", "Room name prefix")
		secret := fs.String("hmac", "", "Base64 secret Daily signs webhook calls with")
		if err := parse(fs, args); err != nil {
			return err
		}
		if *webhook == "" {
			return fmt.Errorf("%w: -webhook is required", errUsage)
		}
		resp, err := admin.ConfigurePinlessDialin(ctx, daily.PinlessDialin{
			PhoneNumber:     *phone,
			RoomCreationAPI: *webhook,
			NamePrefix:      *prefix,
			HMAC:            *secret,
		})
		if err != nil {
			return err
		}
		return printJSON(out, resp)

	case "sip-room":
		name := fs.String("name", "", "Room name")
		display := fs.String("display", daily.DefaultSIPDisplayName, "SIP display name")
		if err := parse(fs, args); err != nil {
			return err
		}
		if *name == "" {
			return fmt.Errorf("%w: -name is required", errUsage)
		}
		room, err := admin.UpsertSIPRoom(ctx, *name, *display)
		if err != nil {
			return err
		}
		return printJSON(out, room)

	case "delete-room":
		name := fs.String("name", "", "Room name")
		if err := parse(fs, args); err != nil {
			return err
		}
		if *name == "" {
			return fmt.Errorf("%w: -name is required", errUsage)
		}
		if err := admin.DeleteRoom(ctx, *name); err != nil {
			return err
		}
		_, err := fmt.Fprintf(out, "deleted %s\n", *name)
		return err

	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("%w: unexpected arguments %v", errUsage, fs.Args())
	}
	return nil
}

func printJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
