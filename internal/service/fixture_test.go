package service_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"agro-herders-service/internal/domain/agro"
	"agro-herders-service/internal/geo"
	"agro-herders-service/internal/repository"
	"agro-herders-service/internal/service"
	"agro-herders-service/internal/testutil"
)

const corridorA = `{"type":"Polygon","coordinates":[[[7.0,9.0],[7.0,9.5],[7.5,9.5],[7.5,9.0],[7.0,9.0]]]}`

func ptr[T any](v T) *T { return &v }

// recordingAuditor captures audit records instead of writing them.
type recordingAuditor struct {
	mu      sync.Mutex
	records []agro.AuditRecord
}

func (a *recordingAuditor) Enqueue(_ context.Context, rec agro.AuditRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, rec)
	return nil
}

func (a *recordingAuditor) all() []agro.AuditRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]agro.AuditRecord(nil), a.records...)
}

type fixture struct {
	db       *gorm.DB
	herders  *repository.HerderRepository
	routes   *repository.RouteRepository
	index    *geo.Index
	auditor  *recordingAuditor
	herderSv *service.HerderService
	routeSv  *service.RouteService

	h1 *agro.Herder // Plateau, FACE_X / FINGER_X, owns RFID_1
	h2 *agro.Herder // Kano, FACE_Y / FINGER_Y, owns RFID_2
}

// newFixture seeds two herders, one animal each and Corridor A in Plateau.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	log := zerolog.Nop()

	db := testutil.NewDB(t)
	f := &fixture{
		db:      db,
		herders: repository.NewHerderRepository(db, testutil.Options()),
		routes:  repository.NewRouteRepository(db, testutil.Options()),
		index:   geo.NewIndex(),
		auditor: &recordingAuditor{},
	}
	f.herderSv = service.NewHerderService(f.herders, log)
	f.routeSv = service.NewRouteService(f.routes, f.index, log, nil)

	var err error
	f.h1, err = f.herderSv.Register(ctx, agro.HerderRegistration{
		FullName: "Musa Bello", Age: 42, StateOfOrigin: "Plateau",
		FaceVector: "FACE_X", FingerprintHash: "FINGER_X",
	})
	require.NoError(t, err)
	f.h2, err = f.herderSv.Register(ctx, agro.HerderRegistration{
		FullName: "Aisha Garba", Age: 35, StateOfOrigin: "Kano",
		FaceVector: "FACE_Y", FingerprintHash: "FINGER_Y",
	})
	require.NoError(t, err)

	_, err = f.herderSv.AddLivestock(ctx, agro.LivestockRegistration{HerderID: f.h1.ID, RFIDCode: "RFID_1"})
	require.NoError(t, err)
	_, err = f.herderSv.AddLivestock(ctx, agro.LivestockRegistration{HerderID: f.h2.ID, RFIDCode: "RFID_2"})
	require.NoError(t, err)

	_, err = f.routeSv.Create(ctx, agro.RouteCreate{
		RouteName:   "Corridor A",
		State:       "Plateau",
		GeoJSONData: json.RawMessage(corridorA),
	})
	require.NoError(t, err)
	return f
}

func (f *fixture) verifier(t *testing.T, opts service.VerificationOptions) *service.VerificationService {
	t.Helper()
	return service.NewVerificationService(f.herders, f.index, f.auditor, opts, zerolog.Nop(), nil)
}
