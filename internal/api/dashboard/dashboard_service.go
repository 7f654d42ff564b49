package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"

	"github.com/bugsage/bugsage/internal/types"
)

const (
	recentBugsLimit = 10
	myBugsLimit     = 10

	statsCacheKey = "dashboard:global"
	statsCacheTTL = 30 * time.Second
)

// globalSnapshot is the caller-independent part of the dashboard, cached for
// a short TTL so frequent refreshes don't hammer the aggregate queries.
type globalSnapshot struct {
	Stats      types.DashboardStats
	RecentBugs []types.Bug
	Charts     types.DashboardCharts
}

var _ DashboardService = (*DashboardServiceImpl)(nil)

type DashboardService interface {
	// GetDashboard assembles the dashboard for the calling user. The
	// assigned-bugs list is computed only for non-admin callers; admins get
	// an empty list.
	GetDashboard(ctx context.Context, userID int64, role string) (*types.Dashboard, error)
}

type DashboardServiceImpl struct {
	logger *slog.Logger
	repo   DashboardRepo
	cache  *gocache.Cache
}

func NewDashboardService(repo DashboardRepo, logger *slog.Logger) *DashboardServiceImpl {
	return &DashboardServiceImpl{
		logger: logger,
		repo:   repo,
		cache:  gocache.New(statsCacheTTL, 2*statsCacheTTL),
	}
}

func (s *DashboardServiceImpl) GetDashboard(ctx context.Context, userID int64, role string) (*types.Dashboard, error) {
	snapshot, err := s.globalSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	myBugs := []types.Bug{}
	if role != types.RoleAdmin {
		myBugs, err = s.repo.GetAssignedBugs(ctx, userID, myBugsLimit)
		if err != nil {
			return nil, fmt.Errorf("error fetching assigned bugs: %w", err)
		}
	}

	return &types.Dashboard{
		Stats:      snapshot.Stats,
		RecentBugs: snapshot.RecentBugs,
		MyBugs:     myBugs,
		Charts:     snapshot.Charts,
	}, nil
}

// globalSnapshot returns the cached caller-independent dashboard data,
// rebuilding it with the aggregate queries fanned out concurrently.
func (s *DashboardServiceImpl) globalSnapshot(ctx context.Context) (*globalSnapshot, error) {
	if cached, ok := s.cache.Get(statsCacheKey); ok {
		return cached.(*globalSnapshot), nil
	}

	var (
		stats        *types.DashboardStats
		recent       []types.Bug
		statusDist   []types.StatusCount
		priorityDist []types.PriorityCount
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stats, err = s.repo.GetStats(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		recent, err = s.repo.GetRecentBugs(gctx, recentBugsLimit)
		return err
	})
	g.Go(func() error {
		var err error
		statusDist, err = s.repo.GetStatusDistribution(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		priorityDist, err = s.repo.GetPriorityDistribution(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("error building dashboard snapshot: %w", err)
	}

	snapshot := &globalSnapshot{
		Stats:      *stats,
		RecentBugs: recent,
		Charts: types.DashboardCharts{
			StatusDistribution:   statusDist,
			PriorityDistribution: priorityDist,
		},
	}
	s.cache.Set(statsCacheKey, snapshot, gocache.DefaultExpiration)
	return snapshot, nil
}
