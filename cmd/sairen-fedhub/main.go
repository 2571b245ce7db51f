// Package main — cmd/sairen-fedhub/main.go
//
// SAIREN Fleet Hub: the central server rigs upload checkpoints to and pull
// federated rounds from, grounded on the original fleet hub binary's
// bind-address/port CLI surface, adapted from its Postgres-backed,
// Axum/tokio server to a gRPC server over mutual TLS holding uploads
// in-memory (internal/federation.Hub keeps only each rig's latest
// checkpoint, so there is no durable store to migrate or connect to).
package main

import (
	"crypto/tls"
	"crypto/x509"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"

	"github.com/ashton-dyke/sairen-os/internal/config"
	"github.com/ashton-dyke/sairen-os/internal/federation"
)

func main() {
	addr := flag.String("bind-address", "0.0.0.0:8443", "Address to listen on")
	certFile := flag.String("tls-cert-file", "", "Server TLS certificate (required)")
	keyFile := flag.String("tls-key-file", "", "Server TLS key (required)")
	caFile := flag.String("tls-ca-file", "", "CA cert for verifying rig client certs (required)")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	log, err := buildLogger(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	if *certFile == "" || *keyFile == "" || *caFile == "" {
		log.Fatal("tls-cert-file, tls-key-file, and tls-ca-file are all required")
	}

	creds, err := buildServerCreds(*certFile, *keyFile, *caFile)
	if err != nil {
		log.Fatal("TLS setup failed", zap.Error(err))
	}

	hub := federation.NewHub()
	grpcServer := grpc.NewServer(grpc.Creds(creds))
	federation.RegisterHubServer(grpcServer, hub)

	lis, err := net.Listen("tcp", *addr)
	if err != nil {
		log.Fatal("listen failed", zap.Error(err), zap.String("addr", *addr))
	}

	log.Info("SAIREN Fleet Hub starting",
		zap.String("version", config.Version), zap.String("addr", *addr))

	serveErr := make(chan error, 1)
	go func() { serveErr <- grpcServer.Serve(lis) }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
		grpcServer.GracefulStop()
	case err := <-serveErr:
		if err != nil {
			log.Fatal("gRPC server error", zap.Error(err))
		}
	}

	log.Info("SAIREN Fleet Hub shut down gracefully")
}

func buildServerCreds(certFile, keyFile, caFile string) (credentials.TransportCredentials, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("loading server cert/key: %w", err)
	}
	caCert, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("reading CA cert: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caCert) {
		return nil, fmt.Errorf("parsing CA cert")
	}
	return credentials.NewTLS(&tls.Config{
		Certificates: []tls.Certificate{cert},
		ClientCAs:    pool,
		ClientAuth:   tls.RequireAndVerifyClientCert,
	}), nil
}

func buildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	var zapLevel zap.AtomicLevel
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg.Level = zapLevel
	return cfg.Build()
}
