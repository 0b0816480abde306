package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/sweeney/pcmonitor/internal/command"
	"github.com/sweeney/pcmonitor/internal/config"
	"github.com/sweeney/pcmonitor/internal/gpio"
	"github.com/sweeney/pcmonitor/internal/logging"
	"github.com/sweeney/pcmonitor/internal/metrics"
	"github.com/sweeney/pcmonitor/internal/mqtt"
	"github.com/sweeney/pcmonitor/internal/power"
	"github.com/sweeney/pcmonitor/internal/session"
	"github.com/sweeney/pcmonitor/internal/status"
	"github.com/sweeney/pcmonitor/internal/system"
	"github.com/sweeney/pcmonitor/internal/web"
)

// hardware is the set of lines the daemon drives. *gpio.Board satisfies it.
type hardware interface {
	Switch() gpio.Output
	Sensor() gpio.Input
	Heartbeat() gpio.Output
}

func run(ctx context.Context, cfg *config.Config, opts options, stdout io.Writer) error {
	logging.SetLevel(cfg.Logging.Level)
	log := logging.New("main")

	board, err := gpio.Open(cfg.Pins)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer func() {
		if err := board.Close(); err != nil {
			log.Warnf("close gpio: %v", err)
		}
	}()

	if opts.printState {
		return printState(stdout, board.Sensor())
	}

	client := mqtt.NewPahoClient(logging.New("mqtt"))
	host := system.NewHost(opts.dryRunReboot, logging.New("system"))
	return daemon(ctx, cfg, board, client, host)
}

func printState(w io.Writer, sensor gpio.Input) error {
	on, err := sensor.Read()
	if err != nil {
		return fmt.Errorf("read gpio: %w", err)
	}
	_, err = fmt.Fprintln(w, formatState(on))
	return err
}

func formatState(ledOn bool) string {
	led := power.SensorOff
	if ledOn {
		led = power.SensorOn
	}
	// Opening the board drives the switch line inactive.
	return fmt.Sprintf("LED: %s, SWITCH: %s", led, power.Released)
}

func daemon(ctx context.Context, cfg *config.Config, hw hardware, client mqtt.Client, host system.Rebooter) error {
	log := logging.New("main")
	topics := cfg.MQTT.Topics

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	rec, err := metrics.NewRecorder(reg)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}

	tracker := status.NewTracker(time.Now(), status.Config{
		ClientID:          cfg.MQTT.Name,
		Broker:            cfg.MQTT.BrokerURL(),
		BaseTopic:         topics.Base,
		TickMs:            cfg.Session.Tick().Milliseconds(),
		PingFrequencySec:  int64(cfg.MQTT.PingInterval().Seconds()),
		ForceOffTimeoutMs: cfg.Actuator.ForceOffTimeout().Milliseconds(),
		HTTPAddr:          cfg.HTTP.Addr,
	})
	tracker.SetNetwork(status.ReadNetworkInfo())

	act := power.New(hw.Switch(), client, topics, power.Options{
		Dwell:   cfg.Actuator.PressDwell(),
		Log:     logging.New("power"),
		Metrics: rec,
	})
	if err := act.Attach(hw.Sensor()); err != nil {
		return err
	}

	disp := command.NewDispatcher(topics, act, command.Options{
		ForceOffTimeout: cfg.Actuator.ForceOffTimeout(),
		ForceOffPoll:    cfg.Actuator.ForceOffPoll(),
		Log:             logging.New("command"),
		Metrics:         rec,
	})

	loop := session.New(client, act, disp, topics, session.Options{
		Client: mqtt.Options{
			ClientID:  cfg.MQTT.Name,
			Broker:    cfg.MQTT.BrokerURL(),
			User:      cfg.MQTT.User,
			Password:  cfg.MQTT.Password,
			Keepalive: cfg.MQTT.KeepaliveInterval(),
		},
		WillPayload:            cfg.MQTT.WillPayload,
		Tick:                   cfg.Session.Tick(),
		PingInterval:           cfg.MQTT.PingInterval(),
		ErrorBackoff:           cfg.Session.ErrorBackoff(),
		ReconnectAfterFailures: cfg.Session.ReconnectAfterFailures,
		Heartbeat:              hw.Heartbeat(),
		Tracker:                tracker,
		Metrics:                rec,
		Log:                    logging.New("session"),
	})

	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker, reg, logging.New("web"))
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Errorf("http server error: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Warnf("http shutdown: %v", err)
			}
		}()
		log.Infof("http status server listening on %s", cfg.HTTP.Addr)
	}

	log.Infof("started: broker=%s base=%s switch=%d led=%d", cfg.MQTT.BrokerURL(), topics.Base, cfg.Pins.PowerSwitch, cfg.Pins.PowerLED)

	eff, err := loop.Run(ctx)
	if err != nil {
		return err
	}
	switch eff {
	case command.EffectReboot:
		return host.Reboot()
	case command.EffectStop:
		log.Infof("stopped by command")
	}
	return nil
}
