// rover-agent polls the command server and actuates the rover's motors,
// speaking each response through the local audio output.
package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"
	"time"

	"github.com/teslashibe/go-rover/internal/config"
	"github.com/teslashibe/go-rover/internal/log"
	"github.com/teslashibe/go-rover/pkg/agent"
	"github.com/teslashibe/go-rover/pkg/effector"
	"github.com/teslashibe/go-rover/pkg/playback"
	"github.com/teslashibe/go-rover/pkg/tts"
)

func main() {
	config.LoadDotenv()

	serverURL := flag.String("server", config.ServerURL(), "command server base URL")
	pollInterval := flag.Duration("poll", config.EnvDuration("POLL_INTERVAL", config.DefaultPollInterval), "poll interval")
	simulate := flag.Bool("simulate", false, "log pin writes instead of driving GPIO")
	pulse := flag.Duration("pulse", 0, "pulse pins for this duration instead of latching (0 = latch)")
	mute := flag.Bool("mute", false, "disable spoken responses")
	logLevel := flag.String("log-level", config.Env("LOG_LEVEL", "info"), "log level: debug, info, warn, error")
	flag.Parse()

	log.Init(*logLevel)

	var driver effector.Driver
	if *simulate {
		driver = effector.NewSim(log.L())
	} else {
		driver = effector.NewSysfs()
	}

	bankOpts := []effector.BankOption{}
	if *pulse > 0 {
		bankOpts = append(bankOpts, effector.WithMode(effector.Pulse), effector.WithPulse(*pulse))
	}
	bank := effector.NewBank(driver, bankOpts...)
	defer bank.Close()

	opts := []agent.AgentOption{
		agent.WithPollInterval(*pollInterval),
		agent.WithAgentLogger(log.L()),
	}

	if !*mute {
		voice, player := buildVoice()
		if voice != nil {
			opts = append(opts, agent.WithVoice(voice, player))
		}
	}

	fetcher := agent.NewHTTPFetcher(*serverURL)
	a := agent.New(fetcher, bank, opts...)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("rover agent starting", "server", *serverURL, "simulate", *simulate)
	if err := a.Run(ctx); err != nil && ctx.Err() == nil {
		log.Error("agent exited", "error", err)
	}
	log.Info("rover agent stopped")
}

// buildVoice assembles the speech path. A missing ElevenLabs key disables
// speech rather than failing startup.
func buildVoice() (tts.Provider, playback.Backend) {
	key := config.ElevenLabsKey()
	if key == "" {
		log.Warn("ELEVENLABS_API_KEY not set, spoken responses disabled")
		return nil, nil
	}

	voice, err := tts.NewElevenLabs(
		tts.WithAPIKey(key),
		tts.WithLogger(log.L()),
		tts.WithTimeout(30*time.Second),
	)
	if err != nil {
		log.Warn("speech synthesis unavailable", "error", err)
		return nil, nil
	}

	player, err := playback.NewChain(log.L(),
		playback.NewBeep(),
		playback.NewOto(),
		playback.NewExec(),
	)
	if err != nil {
		log.Warn("audio playback unavailable", "error", err)
		return nil, nil
	}

	return voice, player
}
