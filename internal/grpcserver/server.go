package grpcserver

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"classreviews/internal/board"
	"classreviews/internal/reviews"
	"classreviews/pkg/models"
)

type Server struct {
	Service      *reviews.Service
	SharedUserID string
}

func NewServer(svc *reviews.Service, sharedUserID string) *Server {
	return &Server{Service: svc, SharedUserID: sharedUserID}
}

func (s *Server) ListReviews(ctx context.Context, req *ListRequest) (*ListResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request required")
	}
	category := strings.TrimSpace(req.Category)
	if category == "" {
		category = board.FilterAll
	}
	sort, ok := board.ParseSortMode(req.Sort)
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "sort must be Recent or Popular")
	}

	items := s.Service.Board(category, sort)
	return &ListResponse{Total: len(items), Items: items}, nil
}

func (s *Server) ToggleReaction(ctx context.Context, req *ToggleRequest) (*ToggleResponse, error) {
	if req == nil || strings.TrimSpace(req.ReviewID) == "" {
		return nil, status.Error(codes.InvalidArgument, "review_id required")
	}
	kind, ok := models.ParseReactionKind(strings.ToLower(strings.TrimSpace(req.Kind)))
	if !ok {
		return nil, status.Error(codes.InvalidArgument, board.Invalid("kind", board.ErrUnknownReaction).Error())
	}
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		userID = s.SharedUserID
	}

	review, outcome, err := s.Service.React(ctx, strings.TrimSpace(req.ReviewID), userID, kind)
	if err != nil {
		return nil, statusFor(err)
	}
	return &ToggleResponse{Outcome: string(outcome), Review: board.NewCard(review)}, nil
}

func statusFor(err error) error {
	switch {
	case board.IsValidation(err):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, board.ErrQuotaExceeded):
		return status.Error(codes.ResourceExhausted, err.Error())
	case errors.Is(err, board.ErrInvalidReference):
		return status.Error(codes.NotFound, "not found")
	case board.IsPersistence(err):
		return status.Error(codes.Unavailable, "storage unavailable")
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

// LoggingInterceptor logs every unary call with its status code.
func LoggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		resp, err := handler(ctx, req)
		logger.Info("grpc call",
			zap.String("method", info.FullMethod),
			zap.String("code", status.Code(err).String()),
		)
		return resp, err
	}
}
