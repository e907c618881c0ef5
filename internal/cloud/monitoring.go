package cloud

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog"
)

// monitoringScript installs or restarts prometheus and node_exporter on the
// instance via Docker. It runs under AWS-RunShellScript and assumes the SSM
// agent is present with an IAM role that allows RunCommand.
var monitoringScript = []string{
	"#!/bin/bash",
	"set -e",
	"sudo mkdir -p /opt/monitoring",
	"cd /opt/monitoring",
	"if ! command -v docker >/dev/null 2>&1; then",
	"  curl -fsSL https://get.docker.com | sh",
	"  sudo usermod -aG docker ec2-user || true",
	"fi",
	"sudo systemctl enable docker || true",
	"sudo systemctl start docker || true",
	"sudo docker rm -f node_exporter || true",
	"sudo docker run -d --name node_exporter --restart unless-stopped -p 9100:9100 prom/node-exporter",
	"sudo docker rm -f prometheus || true",
	"cat > prometheus.yml <<'EOF'",
	"global:",
	"  scrape_interval: 5s",
	"scrape_configs:",
	"  - job_name: 'node'",
	"    static_configs:",
	"      - targets: ['localhost:9100']",
	"EOF",
	"sudo docker run -d --name prometheus --restart unless-stopped -p 9090:9090 -v $(pwd)/prometheus.yml:/etc/prometheus/prometheus.yml prom/prometheus",
}

// Monitoring reconfigures the monitoring stack on the managed instance
// through SSM RunCommand. Calls are fire-and-forget: the command is sent and
// its outcome is not awaited.
type Monitoring struct {
	ssm    *ssm.Client
	logger zerolog.Logger
}

// NewMonitoring builds an SSM-backed monitoring reconfigurer.
func NewMonitoring(ctx context.Context, cfg ClientConfig, logger zerolog.Logger) (*Monitoring, error) {
	var opts []func(*awsconfig.LoadOptions) error

	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var clientOpts []func(*ssm.Options)
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *ssm.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}

	return &Monitoring{
		ssm:    ssm.NewFromConfig(awsCfg, clientOpts...),
		logger: logger.With().Str("component", "monitoring").Logger(),
	}, nil
}

// Reconfigure sends the monitoring setup script to the instance. A failure
// here degrades monitoring but never invalidates a completed resize, so
// callers treat errors as best-effort.
func (m *Monitoring) Reconfigure(ctx context.Context, instanceID string) error {
	out, err := m.ssm.SendCommand(ctx, &ssm.SendCommandInput{
		InstanceIds:  []string{instanceID},
		DocumentName: aws.String("AWS-RunShellScript"),
		Parameters:   map[string][]string{"commands": monitoringScript},
	})
	if err != nil {
		return fmt.Errorf("send monitoring setup command to %s: %w", instanceID, err)
	}

	commandID := ""
	if out.Command != nil && out.Command.CommandId != nil {
		commandID = *out.Command.CommandId
	}
	m.logger.Info().
		Str("instance_id", instanceID).
		Str("command_id", commandID).
		Msg("Monitoring reconfiguration command sent")
	return nil
}
