package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"q-pipecat/internal/bot"
	"q-pipecat/internal/bot/notify"
	"q-pipecat/internal/clients/daily"
	"q-pipecat/internal/clients/googleai"
	"q-pipecat/internal/clients/openai"
	"q-pipecat/internal/config"
	"q-pipecat/internal/observability"
	"q-pipecat/internal/persona"
	"q-pipecat/internal/voice/model"
	"q-pipecat/internal/voice/pipeline"
	"q-pipecat/internal/voice/transport"
)

func main() {
	var call bot.Call
	var personaName string
	flag.StringVar(&call.RoomURL, "u", "", "Room URL")
	flag.StringVar(&call.Token, "t", "", "Meeting token")
	flag.StringVar(&call.CallID, "i", "", "Call ID of the held inbound call")
	flag.StringVar(&call.CallDomain, "d", "", "Call domain of the held inbound call")
	flag.StringVar(&call.Vendor, "v", bot.VendorDaily, "Dial-in vendor: daily or twilio")
	flag.StringVar(&personaName, "p", "", "Persona (overrides BOT_PERSONA)")
	flag.Parse()

	if call.RoomURL == "" || call.Token == "" || call.CallID == "" {
		fmt.Fprintln(os.Stderr, "usage: bot -u <room_url> -t <token> -i <call_id> -d <call_domain> [-v daily|twilio] [-p persona]")
		os.Exit(2)
	}

	cfg, err := config.LoadBot()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	if personaName != "" {
		cfg.Persona = personaName
	}

	logger := observability.NewLoggerWithLevel(cfg.Logging.Level)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = observability.WithFields(ctx, observability.Field{Key: "call_id", Value: call.CallID})

	if err := run(ctx, cfg, call, logger); err != nil {
		logger.Error(ctx, "Call agent failed", err)
		logger.Sync()
		stop()
		os.Exit(1)
	}
	logger.Info(ctx, "Call agent finished")
}

func run(ctx context.Context, cfg *config.BotConfig, call bot.Call, logger *observability.Logger) error {
	personas, err := persona.Load(cfg.PersonaDir)
	if err != nil {
		return err
	}
	p, err := personas.Get(cfg.Persona)
	if err != nil {
		return err
	}

	session, err := newSession(ctx, cfg, p, logger)
	if err != nil {
		return err
	}

	notifier, closeNotifier, err := newNotifier(cfg, call.Vendor, logger)
	if err != nil {
		return err
	}
	defer closeNotifier()

	opts := bot.Options{Pipeline: pipeline.DefaultConfig()}
	if cfg.CallSummary {
		summarizer, err := openai.NewSummarizer(cfg.OpenAIAPIKey, logger)
		if err != nil {
			logger.InfoWithError(ctx, "Call summary disabled", err)
		} else {
			opts.Summarizer = summarizer
		}
	}

	connect := func(ctx context.Context, join transport.JoinRequest) (bot.Transport, error) {
		bridge, err := transport.Connect(ctx, cfg.MediaBridgeURL, join, logger)
		if err != nil {
			return nil, err
		}
		return bridge, nil
	}

	logger.Info(ctx, fmt.Sprintf("Starting %s agent with %s model", p.Name, cfg.ModelProvider))
	return bot.New(call, p, connect, session, notifier, opts, logger).Run(ctx)
}

func newSession(ctx context.Context, cfg *config.BotConfig, p persona.Persona, logger *observability.Logger) (model.Session, error) {
	switch cfg.ModelProvider {
	case config.ModelProviderGemini:
		return googleai.NewLiveSession(ctx, googleai.LiveConfig{
			APIKey:       cfg.GoogleAIAPIKey,
			Model:        cfg.GeminiModel,
			Voice:        p.GeminiVoice,
			Instructions: p.Instructions,
			Greeting:     p.Greeting,
		}, logger)
	case config.ModelProviderOpenAI:
		return openai.NewRealtimeSession(openai.RealtimeConfig{
			APIKey:       cfg.OpenAIAPIKey,
			Model:        cfg.RealtimeModel,
			Voice:        p.Voice,
			Instructions: p.Instructions,
			Greeting:     p.Greeting,
		}, logger)
	default:
		return nil, fmt.Errorf("unsupported model provider %q", cfg.ModelProvider)
	}
}

func newNotifier(cfg *config.BotConfig, vendor string, logger *observability.Logger) (bot.Notifier, func(), error) {
	policy := notify.DefaultPolicy(cfg.NotifyMaxAttempts)

	switch vendor {
	case bot.VendorDaily:
		client := daily.NewClient(cfg.Daily, logger)
		return notify.NewDailyNotifier(client, policy, logger), client.Close, nil
	case bot.VendorTwilio:
		if !cfg.Twilio.Enabled() {
			return nil, nil, errors.New("twilio vendor requires TWILIO_ACCOUNT_SID and TWILIO_AUTH_TOKEN")
		}
		return notify.NewTwilioForwarder(cfg.Twilio, policy, logger), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported vendor %q", vendor)
	}
}
