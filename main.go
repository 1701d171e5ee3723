package main

import (
	"crypto/tls"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"board-sync/api"
	"board-sync/domain"
	"board-sync/storage"
)

func parseSnapshotTTL(v string) (time.Duration, error) {
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid SNAPSHOT_CACHE_TTL %q: %w", v, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid SNAPSHOT_CACHE_TTL %q: negative duration", v)
	}
	return d, nil
}

func main() {
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}

	policy := domain.Coerce
	if v := os.Getenv("VALIDATION_POLICY"); v != "" {
		p, err := domain.ParsePolicy(v)
		if err != nil {
			log.Fatalf("invalid VALIDATION_POLICY: %v", err)
		}
		policy = p
	}
	store := storage.New(policy)

	var rc *redis.Client
	if redisConn := os.Getenv("REDIS_CONNECTION_STRING"); redisConn != "" {
		redisOpts, err := redis.ParseURL(redisConn)
		if err != nil {
			parts := strings.Split(redisConn, ",")
			redisOpts = &redis.Options{Addr: parts[0]}
			for _, p := range parts[1:] {
				kv := strings.SplitN(p, "=", 2)
				if len(kv) != 2 {
					continue
				}
				switch strings.ToLower(kv[0]) {
				case "password":
					redisOpts.Password = kv[1]
				case "ssl":
					if strings.ToLower(kv[1]) == "true" {
						redisOpts.TLSConfig = &tls.Config{}
					}
				}
			}
		}
		rc = redis.NewClient(redisOpts)
	}
	ttl := time.Duration(0)
	if v := os.Getenv("SNAPSHOT_CACHE_TTL"); v != "" {
		d, err := parseSnapshotTTL(v)
		if err != nil {
			log.Fatalf("%v", err)
		}
		ttl = d
	}
	cache := storage.NewSnapshotCache(rc, ttl)

	sendBuf := 0
	if v := os.Getenv("SEND_BUFFER"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			log.Fatalf("invalid SEND_BUFFER: must be a positive integer")
		}
		sendBuf = n
	}

	logger := log.StandardLogger()
	hub := api.NewHub(store, cache, logger, sendBuf)

	e := echo.New()
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))

	api.Register(e, hub, store, logger)

	listenAddr := ":5000"
	if val, ok := os.LookupEnv("PORT"); ok {
		listenAddr = ":" + val
	}

	e.Logger.Fatal(e.Start(listenAddr))
}
