package leasesvc

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/corral-dev/corral/api/proto"
	"github.com/corral-dev/corral/pkg/errdefs"
	"github.com/corral-dev/corral/pkg/log"
	"github.com/corral-dev/corral/pkg/manager"
	"github.com/corral-dev/corral/pkg/scheduler"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	// DefaultLeaseTTL is how long a dispatched lease lives before the
	// reconciler may reclaim the run.
	DefaultLeaseTTL = 30 * time.Second

	// DefaultDispatchInterval is the cadence of the dispatch tick.
	DefaultDispatchInterval = 500 * time.Millisecond

	// dispatchLockKey serializes the dispatch tick across control-plane
	// replicas.
	dispatchLockKey = "scheduler:tick"
)

// puller is one worker's open Pull stream plus its dispatch credits.
type puller struct {
	nodeID  string
	leaseCh chan *proto.Lease
	credits int
}

// Service implements the worker-facing lease dispatch plane. Workers hold a
// Pull stream open; the dispatch tick places pending runs and pushes leases
// down the matching stream.
type Service struct {
	proto.UnimplementedLeaseServiceServer

	mgr        *manager.Manager
	sched      *scheduler.Scheduler
	instanceID string

	leaseTTL         time.Duration
	dispatchInterval time.Duration

	mu      sync.Mutex
	pullers map[string]*puller

	grpcServer *grpc.Server
	stopCh     chan struct{}
	doneCh     chan struct{}
}

// NewService creates the lease service.
func NewService(mgr *manager.Manager, sched *scheduler.Scheduler) *Service {
	return &Service{
		mgr:              mgr,
		sched:            sched,
		instanceID:       uuid.New().String(),
		leaseTTL:         DefaultLeaseTTL,
		dispatchInterval: DefaultDispatchInterval,
		pullers:          make(map[string]*puller),
		stopCh:           make(chan struct{}),
		doneCh:           make(chan struct{}),
	}
}

// Serve starts the gRPC server on lis and the dispatch loop. It blocks
// until Stop is called or the listener fails.
func (s *Service) Serve(lis net.Listener) error {
	s.grpcServer = grpc.NewServer()
	proto.RegisterLeaseServiceServer(s.grpcServer, s)

	go s.dispatchLoop()

	log.WithComponent("leasesvc").Info().Str("addr", lis.Addr().String()).Msg("lease service listening")
	return s.grpcServer.Serve(lis)
}

// Start launches only the dispatch loop. Used when the gRPC server is
// managed elsewhere (tests register the service themselves).
func (s *Service) Start() {
	go s.dispatchLoop()
}

// Stop halts dispatching and the gRPC server.
func (s *Service) Stop() {
	close(s.stopCh)
	<-s.doneCh
	if s.grpcServer != nil {
		s.grpcServer.GracefulStop()
	}
}

// Pull registers the node's stream and forwards leases until the worker
// disconnects.
func (s *Service) Pull(req *proto.PullRequest, stream proto.LeaseService_PullServer) error {
	if req.GetNodeId() == "" {
		return grpcError(errdefs.Validationf("node id must not be empty"))
	}
	if _, err := s.mgr.GetNode(req.GetNodeId()); err != nil {
		return grpcError(err)
	}
	maxLeases := int(req.GetMaxLeases())
	if maxLeases <= 0 {
		maxLeases = 1
	}

	p := &puller{
		nodeID:  req.GetNodeId(),
		leaseCh: make(chan *proto.Lease, maxLeases),
		credits: maxLeases,
	}

	s.mu.Lock()
	if _, exists := s.pullers[p.nodeID]; exists {
		s.mu.Unlock()
		return grpcError(errdefs.Conflictf("node %s already has an open pull stream", p.nodeID))
	}
	s.pullers[p.nodeID] = p
	s.mu.Unlock()

	logger := log.WithComponent("leasesvc").With().Str("node_id", p.nodeID).Logger()
	logger.Info().Int("max_leases", maxLeases).Msg("pull stream opened")

	defer func() {
		s.mu.Lock()
		delete(s.pullers, p.nodeID)
		s.mu.Unlock()
		logger.Info().Msg("pull stream closed")
	}()

	for {
		select {
		case lease := <-p.leaseCh:
			if err := stream.Send(lease); err != nil {
				return err
			}
		case <-stream.Context().Done():
			return stream.Context().Err()
		case <-s.stopCh:
			return nil
		}
	}
}

// Ack transitions the acked run to running. A worker that lost the lease in
// the meantime gets ok=false and must drop the work.
func (s *Service) Ack(ctx context.Context, req *proto.AckRequest) (*proto.AckResponse, error) {
	err := s.mgr.MarkRunning(req.GetRunId(), req.GetNodeId())
	if err != nil {
		if errdefs.IsNotOwner(err) || errdefs.IsConflict(err) {
			// The worker drops the work, so its slot frees up; the
			// dispatch credit must come back with it.
			s.returnCredit(req.GetNodeId())
			return &proto.AckResponse{Ok: false, Message: err.Error()}, nil
		}
		return nil, grpcError(err)
	}
	return &proto.AckResponse{Ok: true}, nil
}

// Extend renews the lease on a run the node is still executing, so work
// longer than one lease TTL is not reclaimed mid-flight. Only the owning
// node may extend; a node that lost the lease gets ok=false and must stop.
func (s *Service) Extend(ctx context.Context, req *proto.ExtendRequest) (*proto.ExtendResponse, error) {
	expiresAt, err := s.mgr.RenewLease(ctx, req.GetRunId(), req.GetNodeId(), s.leaseTTL)
	if err != nil {
		if errdefs.IsNotOwner(err) || errdefs.IsNotFound(err) {
			return &proto.ExtendResponse{Ok: false}, nil
		}
		return nil, grpcError(err)
	}
	return &proto.ExtendResponse{Ok: true, ExpiresAt: expiresAt.UnixMilli()}, nil
}

// Complete records a successful run and returns a dispatch credit to the
// node's stream.
func (s *Service) Complete(ctx context.Context, req *proto.CompleteRequest) (*proto.CompleteResponse, error) {
	costs := costsFromProto(req.GetCosts())
	if err := s.mgr.CompleteRun(ctx, req.GetRunId(), req.GetNodeId(), req.GetTimings(), costs); err != nil {
		if errdefs.IsNotOwner(err) || errdefs.IsConflict(err) {
			s.returnCredit(req.GetNodeId())
			return &proto.CompleteResponse{Ok: false}, nil
		}
		return nil, grpcError(err)
	}
	s.returnCredit(req.GetNodeId())
	return &proto.CompleteResponse{Ok: true}, nil
}

// Fail records a failure. should_retry reports whether the control plane
// requeued the run; retry accounting lives entirely on this side.
func (s *Service) Fail(ctx context.Context, req *proto.FailRequest) (*proto.FailResponse, error) {
	shouldRetry, err := s.mgr.FailRun(ctx, req.GetRunId(), req.GetNodeId(),
		req.GetErrorMessage(), req.GetErrorDetails(), req.GetRetryable(), req.GetTimings())
	if err != nil {
		if errdefs.IsNotOwner(err) || errdefs.IsConflict(err) {
			s.returnCredit(req.GetNodeId())
			return &proto.FailResponse{ShouldRetry: false}, nil
		}
		return nil, grpcError(err)
	}
	s.returnCredit(req.GetNodeId())
	return &proto.FailResponse{ShouldRetry: shouldRetry}, nil
}

// grpcError maps an error's kind onto a gRPC status.
func grpcError(err error) error {
	if err == nil {
		return nil
	}
	var code codes.Code
	switch errdefs.KindOf(err) {
	case errdefs.KindValidation:
		code = codes.InvalidArgument
	case errdefs.KindNotFound:
		code = codes.NotFound
	case errdefs.KindConflict:
		code = codes.AlreadyExists
	case errdefs.KindNotOwner:
		code = codes.PermissionDenied
	case errdefs.KindTransient:
		code = codes.Unavailable
	default:
		code = codes.Internal
	}
	return status.Error(code, err.Error())
}

func (s *Service) returnCredit(nodeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.pullers[nodeID]; ok && p.credits < cap(p.leaseCh) {
		p.credits++
	}
}
