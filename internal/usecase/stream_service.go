package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"

	crerr "github.com/cockroachdb/errors"
	"github.com/panjf2000/ants/v2"
	"go.opentelemetry.io/otel/attribute"

	"github.com/riskibarqy/streamhub/internal/domain/channel"
	"github.com/riskibarqy/streamhub/internal/domain/stream"
	"github.com/riskibarqy/streamhub/internal/platform/logging"
)

const defaultResolveConcurrency = 4

type StreamProvider interface {
	FetchStreams(ctx context.Context, source, id string) ([]stream.Stream, error)
}

// StreamResolver turns an embed URL into a playable URL. It never fails;
// unresolved results carry stream.KindUnresolved.
type StreamResolver interface {
	Resolve(ctx context.Context, embedURL string) stream.Resolution
}

// ResolvedStream pairs a provider stream with the outcome of resolving its
// embed page.
type ResolvedStream struct {
	stream.Stream
	Resolution stream.Resolution
}

type StreamService struct {
	provider    StreamProvider
	resolver    StreamResolver
	catalog     CatalogSource
	concurrency int
	logger      *logging.Logger
}

// NewStreamService builds the service. catalog is used for channel sources
// and may be nil.
func NewStreamService(provider StreamProvider, resolver StreamResolver, catalog CatalogSource, concurrency int, logger *logging.Logger) *StreamService {
	if concurrency <= 0 {
		concurrency = defaultResolveConcurrency
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &StreamService{
		provider:    provider,
		resolver:    resolver,
		catalog:     catalog,
		concurrency: concurrency,
		logger:      logger.Named("streams"),
	}
}

// ListStreams returns the streams behind one source with their embed pages
// resolved. Resolution failures leave the stream unresolved.
func (s *StreamService) ListStreams(ctx context.Context, source, id string) ([]ResolvedStream, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.StreamService.ListStreams",
		attribute.String("stream.source", source),
		attribute.String("stream.id", id),
	)
	defer span.End()

	source, id = strings.TrimSpace(source), strings.TrimSpace(id)
	if source == "" || id == "" {
		return nil, fmt.Errorf("%w: source and id are required", ErrInvalidInput)
	}

	var (
		streams []stream.Stream
		err     error
	)
	if source == ChannelSourceProvider {
		streams, err = s.channelStreams(ctx, id)
	} else {
		streams, err = s.provider.FetchStreams(ctx, source, id)
	}
	if err != nil {
		if crerr.Is(err, ErrNotFound) || crerr.Is(err, ErrInvalidInput) {
			return nil, err
		}
		s.logger.WarnContext(ctx, "list streams failed", "source", source, "id", id, "error", err)
		return nil, crerr.Mark(crerr.Wrapf(err, "list streams %s/%s", source, id), ErrProviderUnavailable)
	}

	out := s.resolveAll(ctx, streams)
	span.SetAttributes(attribute.Int("stream.count", len(out)))
	return out, nil
}

// Resolve resolves a single embed URL.
func (s *StreamService) Resolve(ctx context.Context, embedURL string) (stream.Resolution, error) {
	embedURL = strings.TrimSpace(embedURL)
	if embedURL == "" {
		return stream.Resolution{}, fmt.Errorf("%w: embed url is required", ErrInvalidInput)
	}
	return s.resolver.Resolve(ctx, embedURL), nil
}

func (s *StreamService) channelStreams(ctx context.Context, slug string) ([]stream.Stream, error) {
	if s.catalog == nil {
		return nil, fmt.Errorf("%w: channel %s", ErrNotFound, slug)
	}
	for _, c := range s.catalog.Current(ctx).Channels {
		if c.Slug() == slug {
			return []stream.Stream{channelStream(c)}, nil
		}
	}
	return nil, fmt.Errorf("%w: channel %s", ErrNotFound, slug)
}

func channelStream(c channel.Channel) stream.Stream {
	return stream.Stream{
		ID:       c.Slug(),
		StreamNo: 1,
		Language: c.CountryCode,
		EmbedURL: c.URL,
		Source:   ChannelSourceProvider,
		Viewers:  c.Viewers,
	}
}

func (s *StreamService) resolveAll(ctx context.Context, streams []stream.Stream) []ResolvedStream {
	out := make([]ResolvedStream, len(streams))
	for i, st := range streams {
		out[i] = ResolvedStream{Stream: st}
	}
	if len(streams) == 0 {
		return out
	}

	pool, err := ants.NewPool(min(s.concurrency, len(streams)))
	if err != nil {
		for i := range out {
			out[i].Resolution = s.resolver.Resolve(ctx, out[i].EmbedURL)
		}
		return out
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for i := range out {
		i := i
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			out[i].Resolution = s.resolver.Resolve(ctx, out[i].EmbedURL)
		}); err != nil {
			wg.Done()
			out[i].Resolution = s.resolver.Resolve(ctx, out[i].EmbedURL)
		}
	}
	wg.Wait()
	return out
}
