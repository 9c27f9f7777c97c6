package alert

import (
	"context"
	"net"
	"strconv"

	"github.com/code19m/errx"
	sentinelpb "github.com/code19m/sentinel/pb"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// SentinelProvider sends alerts to Sentinel over gRPC.
type SentinelProvider struct {
	cfg            Config
	serviceName    string
	serviceVersion string
	client         sentinelpb.SentinelServiceClient
	conn           *grpc.ClientConn
}

// NewSentinelProvider creates the gRPC client. The connection is made lazily
// on the first alert.
func NewSentinelProvider(cfg Config, serviceName, serviceVersion string) (*SentinelProvider, error) {
	conn, err := grpc.NewClient(
		net.JoinHostPort(cfg.SentinelHost, strconv.Itoa(cfg.SentinelPort)),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	)
	if err != nil {
		return nil, errx.Wrap(err)
	}

	return &SentinelProvider{
		cfg:            cfg,
		serviceName:    serviceName,
		serviceVersion: serviceVersion,
		client:         sentinelpb.NewSentinelServiceClient(conn),
		conn:           conn,
	}, nil
}

// SendError reports one error, adding the service version to details.
func (sp *SentinelProvider) SendError(
	ctx context.Context,
	errCode, msg, operation string,
	details map[string]string,
) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sp.cfg.SendTimeout)
	defer cancel()

	withVersion := make(map[string]string, len(details)+1)
	for k, v := range details {
		withVersion[k] = v
	}
	withVersion["service_version"] = sp.serviceVersion

	_, err := sp.client.SendError(ctx, &sentinelpb.ErrorInfo{
		Code:      errCode,
		Message:   msg,
		Service:   sp.serviceName,
		Operation: operation,
		Details:   withVersion,
	})
	return errx.Wrap(err)
}

// Close closes the gRPC connection.
func (sp *SentinelProvider) Close() error {
	return errx.Wrap(sp.conn.Close())
}
