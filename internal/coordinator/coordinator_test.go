package coordinator

import (
	"context"
	"errors"
	"myfuelportal-backend/internal/components/telemetry"
	"myfuelportal-backend/internal/notify"
	"myfuelportal-backend/internal/scrapers/fuelportal"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type result struct {
	reading fuelportal.Reading
	err     error
}

type fakeSource struct {
	mutex   sync.Mutex
	results []result
	calls   int
	ctxs    []context.Context
}

func (s *fakeSource) push(reading fuelportal.Reading, err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.results = append(s.results, result{reading: reading, err: err})
}

func (s *fakeSource) FetchReading(ctx context.Context) (fuelportal.Reading, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.calls++
	s.ctxs = append(s.ctxs, ctx)
	if len(s.results) == 0 {
		return fuelportal.Reading{}, errors.New("no result queued")
	}
	r := s.results[0]
	s.results = s.results[1:]
	return r.reading, r.err
}

type fakeCron struct {
	spec     string
	callback func()
}

func (c *fakeCron) Cron(spec string, callback func()) error {
	c.spec = spec
	c.callback = callback
	return nil
}

type fakeNotifier struct {
	messages []notify.Message
}

func (n *fakeNotifier) Notify(ctx context.Context, msg notify.Message) error {
	n.messages = append(n.messages, msg)
	return nil
}

type fakeRecorder struct {
	readings []fuelportal.Reading
	err      error
}

func (r *fakeRecorder) Push(ctx context.Context, reading fuelportal.Reading) error {
	if r.err != nil {
		return r.err
	}
	r.readings = append(r.readings, reading)
	return nil
}

func levelReading(level int, at time.Time) fuelportal.Reading {
	return fuelportal.Reading{Time: at, Level: &level}
}

var (
	errAuth          = &fuelportal.Error{Kind: fuelportal.KindAuthentication, Message: "credentials were rejected"}
	errCommunication = &fuelportal.Error{Kind: fuelportal.KindCommunication, Message: "timeout"}
	errNavigation    = &fuelportal.Error{Kind: fuelportal.KindNavigation, Message: "failed to fetch tank page"}
)

type fixture struct {
	source   *fakeSource
	cron     *fakeCron
	notifier *fakeNotifier
	history  *fakeRecorder
	tel      *telemetry.RecordingAPI
	coord    *Coordinator
}

func newFixture(t testing.TB, lowLevel int) fixture {
	f := fixture{
		source:   &fakeSource{},
		cron:     &fakeCron{},
		notifier: &fakeNotifier{},
		history:  &fakeRecorder{},
		tel:      &telemetry.RecordingAPI{},
	}
	coord, err := New(f.source, Options{
		LowLevel: lowLevel,
		History:  f.history,
		Notifier: f.notifier,
	}, f.tel)
	require.NoError(t, err)
	require.NoError(t, coord.Start(context.Background(), f.cron))
	f.coord = coord
	return f
}

func TestStartSchedules(t *testing.T) {
	f := newFixture(t, 0)
	require.Equal(t, DefaultSchedule, f.cron.spec)
	require.Equal(t, 0, f.source.calls)
	require.Equal(t, StatusUnknown, f.coord.Snapshot().Status)
}

func TestRefreshSuccess(t *testing.T) {
	f := newFixture(t, 0)
	at := time.Date(2025, 1, 6, 8, 0, 0, 0, time.UTC)
	f.source.push(levelReading(49, at), nil)

	snapshot, err := f.coord.Refresh(context.Background())
	require.NoError(t, err)
	require.Equal(t, StatusOK, snapshot.Status)
	require.Equal(t, 49, *snapshot.Reading.Level)
	require.Equal(t, at, snapshot.UpdatedAt)
	require.Len(t, f.history.readings, 1)
}

func TestFailureKeepsLastReading(t *testing.T) {
	f := newFixture(t, 0)
	at := time.Date(2025, 1, 6, 8, 0, 0, 0, time.UTC)
	f.source.push(levelReading(49, at), nil)
	f.source.push(fuelportal.Reading{}, errCommunication)
	f.source.push(fuelportal.Reading{}, errNavigation)

	_, err := f.coord.Refresh(context.Background())
	require.NoError(t, err)

	for _, expected := range []error{errCommunication, errNavigation} {
		f.cron.callback()
		snapshot := f.coord.Snapshot()
		require.Equal(t, StatusUpdateFailed, snapshot.Status)
		require.Equal(t, expected, snapshot.LastError)
		require.Equal(t, 49, *snapshot.Reading.Level)
		require.Equal(t, at, snapshot.UpdatedAt)
	}
	require.Empty(t, f.notifier.messages)
	require.Len(t, f.tel.Reports("warning"), 2)
}

func TestAuthFailureNeedsReconfiguration(t *testing.T) {
	f := newFixture(t, 0)
	f.source.push(fuelportal.Reading{}, errAuth)

	f.cron.callback()
	snapshot := f.coord.Snapshot()
	require.Equal(t, StatusNeedsReconfiguration, snapshot.Status)
	require.ErrorIs(t, snapshot.LastError, fuelportal.ErrAuthentication)
	require.Nil(t, snapshot.Reading)
	require.Len(t, f.notifier.messages, 1)
	require.Equal(t, 1, f.source.calls)

	// scheduled refreshes are skipped
	f.cron.callback()
	f.cron.callback()
	require.Equal(t, 1, f.source.calls)

	// manual refreshes still run, another rejection does not notify again
	f.source.push(fuelportal.Reading{}, errAuth)
	_, err := f.coord.Refresh(context.Background())
	require.ErrorIs(t, err, fuelportal.ErrAuthentication)
	require.Equal(t, 2, f.source.calls)
	require.Len(t, f.notifier.messages, 1)

	// a successful manual refresh resumes the schedule
	f.source.push(levelReading(60, time.Now()), nil)
	snapshot, err = f.coord.Refresh(context.Background())
	require.NoError(t, err)
	require.Equal(t, StatusOK, snapshot.Status)

	f.source.push(levelReading(59, time.Now()), nil)
	f.cron.callback()
	require.Equal(t, 4, f.source.calls)
	require.Equal(t, 59, *f.coord.Snapshot().Reading.Level)
}

func TestLowLevelNotifiesOncePerTransition(t *testing.T) {
	f := newFixture(t, 25)
	now := time.Now()
	for _, level := range []int{40, 24, 20, 30, 10} {
		f.source.push(levelReading(level, now), nil)
		_, err := f.coord.Refresh(context.Background())
		require.NoError(t, err)
	}

	require.Len(t, f.notifier.messages, 2)
	require.Equal(t, "My Fuel Portal: tank at 24%", f.notifier.messages[0].Subject)
	require.Equal(t, "My Fuel Portal: tank at 10%", f.notifier.messages[1].Subject)
}

func TestReadingWithoutLevelDoesNotNotify(t *testing.T) {
	f := newFixture(t, 25)
	f.source.push(fuelportal.Reading{Time: time.Now()}, nil)
	_, err := f.coord.Refresh(context.Background())
	require.NoError(t, err)
	require.Empty(t, f.notifier.messages)
}

func TestHistoryFailureIsReported(t *testing.T) {
	f := newFixture(t, 0)
	f.history.err = errors.New("disk full")
	f.source.push(levelReading(49, time.Now()), nil)

	snapshot, err := f.coord.Refresh(context.Background())
	require.NoError(t, err)
	require.Equal(t, StatusOK, snapshot.Status)

	broken := f.tel.Reports("broken")
	require.Len(t, broken, 1)
	require.Equal(t, "fuelportal: "+report_coordinator_history, broken[0].ID)
}

func TestSeed(t *testing.T) {
	f := newFixture(t, 0)
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	f.coord.Seed(levelReading(70, at))

	snapshot := f.coord.Snapshot()
	require.Equal(t, StatusUnknown, snapshot.Status)
	require.Equal(t, 70, *snapshot.Reading.Level)
	require.Equal(t, at, snapshot.UpdatedAt)

	// seeding again does not replace it
	f.coord.Seed(levelReading(10, at))
	require.Equal(t, 70, *f.coord.Snapshot().Reading.Level)
}

type watchKey struct{}

func TestScheduledRefreshRunsInStartContext(t *testing.T) {
	source := &fakeSource{}
	cron := &fakeCron{}
	coord, err := New(source, Options{}, &telemetry.RecordingAPI{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.WithValue(context.Background(), watchKey{}, "watch"))
	require.NoError(t, coord.Start(ctx, cron))

	source.push(levelReading(49, time.Date(2025, 1, 6, 8, 0, 0, 0, time.UTC)), nil)
	cron.callback()
	require.Equal(t, 1, source.calls)
	require.Equal(t, "watch", source.ctxs[0].Value(watchKey{}))
	require.NoError(t, source.ctxs[0].Err())

	// nothing is fetched once the watch is shutting down
	cancel()
	cron.callback()
	require.Equal(t, 1, source.calls)
}
