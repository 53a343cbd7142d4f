package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/OFFIS-RIT/curator/internal/queue"
	"github.com/OFFIS-RIT/curator/internal/storage"
	"github.com/OFFIS-RIT/curator/internal/util"
	"github.com/OFFIS-RIT/curator/pkg/leaselock"
	"github.com/OFFIS-RIT/curator/pkg/logger"
	"github.com/OFFIS-RIT/curator/pkg/logger/console"
	"github.com/OFFIS-RIT/curator/pkg/metrics"

	"github.com/jackc/pgx/v5/pgxpool"
)

const maxRetries = 10

func main() {
	util.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// logger
	debug := util.GetEnvBool("DEBUG", false)
	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
		JSON:  util.GetEnvBool("LOG_JSON", false),
	})
	logger.Init(consoleLogger)

	// Init s3 client
	client, err := storage.NewS3Client(ctx)
	if err != nil {
		logger.Fatal("Failed to create s3 client", "err", err)
	}

	// Init pgx client
	pgConn, err := pgxpool.New(ctx, util.GetEnv("DATABASE_URL"))
	if err != nil {
		logger.Fatal("Unable to connect to database", "err", err)
	}
	defer pgConn.Close()

	// Init rabbitmq
	conn, err := queue.Init(ctx)
	if err != nil {
		logger.Fatal("Failed to connect to RabbitMQ", "err", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	defer ch.Close()

	if err := queue.SetupQueues(ch, []string{queue.CurationQueue}); err != nil {
		logger.Fatal("Failed to set up queues", "err", err)
	}

	// One job at a time: every job holds a graph lease for its whole run.
	consumerCh, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open consumer channel", "err", err)
	}
	defer consumerCh.Close()
	if err := consumerCh.Qos(1, 0, false); err != nil {
		logger.Fatal("Failed to set QoS", "err", err)
	}

	msgs, err := consumerCh.Consume(
		queue.CurationQueue,
		queue.CurationQueue+"_consumer",
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,   // args
	)
	if err != nil {
		logger.Fatal("Failed to start consuming", "queue", queue.CurationQueue, "err", err)
	}

	collector := metrics.NewCollector("curator_worker")
	worker := &queue.Worker{
		Pool:    pgConn,
		Locks:   leaselock.New(pgConn),
		S3:      client,
		Ch:      ch,
		Metrics: collector,
		LockTTL: util.GetEnvSeconds("CURATION_LOCK_TTL_SEC", time.Minute),
	}

	logger.Info("Listening for messages", "queue", queue.CurationQueue)
	for {
		select {
		case <-ctx.Done():
			logger.Info("Shutdown signal received, exiting...")
			return
		case msg, ok := <-msgs:
			if !ok {
				logger.Info("Message channel closed", "queue", queue.CurationQueue)
				return
			}

			startTime := time.Now()
			if jobErr := worker.ProcessJob(ctx, msg.Body); jobErr != nil {
				logger.Error("Error processing message", "queue", queue.CurationQueue, "err", jobErr)
				if queue.HandleProcessingError(consumerCh, msg, queue.CurationQueue, maxRetries) {
					if err := worker.FailJob(ctx, msg.Body, jobErr); err != nil {
						logger.Error("Failed to mark dead-lettered job as failed", "err", err)
					}
				}
				continue
			}
			if err := msg.Ack(false); err != nil {
				logger.Error("Failed to ack message", "err", err)
			}

			d := time.Since(startTime)
			logger.Info(
				"Message processed successfully",
				"duration", fmt.Sprintf("%02d:%02d:%02d", int(d.Hours()), int(d.Minutes())%60, int(d.Seconds())%60),
			)
		}
	}
}
