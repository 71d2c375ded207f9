// Package memory implementa el ledger en memoria (tests y desarrollo local).
//
// Cada transacción trabaja sobre una copia del estado y solo la publica si fn
// termina sin error, así que un fallo a mitad de camino no deja rastro.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var (
	_ inventory.TxRunner               = (*Store)(nil)
	_ repository.BalanceRepository     = (*balanceRepo)(nil)
	_ repository.MovementRepository    = (*movementRepo)(nil)
	_ repository.ReservationRepository = (*reservationRepo)(nil)
)

type state struct {
	balances          map[entity.BalanceKey]entity.StockBalance
	headers           map[int64]entity.MovementHeader
	details           []entity.MovementDetail
	reservations      map[int64]entity.Reservation
	nextHeaderID      int64
	nextDetailID      int64
	nextReservationID int64
}

func (s *state) clone() *state {
	c := *s
	c.balances = make(map[entity.BalanceKey]entity.StockBalance, len(s.balances))
	for k, v := range s.balances {
		c.balances[k] = v
	}
	c.headers = make(map[int64]entity.MovementHeader, len(s.headers))
	for k, v := range s.headers {
		c.headers[k] = v
	}
	c.reservations = make(map[int64]entity.Reservation, len(s.reservations))
	for k, v := range s.reservations {
		c.reservations[k] = v
	}
	// El log solo crece: recortar la capacidad obliga a la copia a realocar al anexar.
	c.details = slices.Clip(s.details)
	return &c
}

// Store es un TxRunner en memoria. Las transacciones se serializan.
type Store struct {
	mu sync.Mutex
	st *state
}

// NewStore crea un store vacío.
func NewStore() *Store {
	return &Store{st: &state{
		balances:     make(map[entity.BalanceKey]entity.StockBalance),
		headers:      make(map[int64]entity.MovementHeader),
		reservations: make(map[int64]entity.Reservation),
	}}
}

// Run ejecuta fn sobre una copia del estado y la confirma si fn no falla.
func (s *Store) Run(ctx context.Context, fn func(
	balanceRepo repository.BalanceRepository,
	movementRepo repository.MovementRepository,
	reservationRepo repository.ReservationRepository,
) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()
	if err := fn(&balanceRepo{st: work}, &movementRepo{st: work}, &reservationRepo{st: work}); err != nil {
		return err
	}
	s.st = work
	return nil
}

// DetailCount número de líneas del log (tests).
func (s *Store) DetailCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.st.details)
}

// ── Saldos ────────────────────────────────────────────────────────────────────

type balanceRepo struct{ st *state }

func (r *balanceRepo) Get(_ context.Context, key entity.BalanceKey) (*entity.StockBalance, error) {
	b, ok := r.st.balances[key]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (r *balanceRepo) GetForUpdate(ctx context.Context, key entity.BalanceKey) (*entity.StockBalance, error) {
	return r.Get(ctx, key)
}

func (r *balanceRepo) Create(_ context.Context, b *entity.StockBalance) error {
	if _, ok := r.st.balances[b.BalanceKey]; ok {
		return domain.Conflict(fmt.Errorf("balance %s already exists", b.BalanceKey))
	}
	r.st.balances[b.BalanceKey] = *b
	return nil
}

func (r *balanceRepo) Update(_ context.Context, b *entity.StockBalance) error {
	if _, ok := r.st.balances[b.BalanceKey]; !ok {
		return fmt.Errorf("update balance %s: not found", b.BalanceKey)
	}
	r.st.balances[b.BalanceKey] = *b
	return nil
}

func (r *balanceRepo) ListByProduct(_ context.Context, productID string) ([]*entity.StockBalance, error) {
	var out []*entity.StockBalance
	for k, b := range r.st.balances {
		if k.ProductID == productID {
			b := b
			out = append(out, &b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BalanceKey.Less(out[j].BalanceKey) })
	return out, nil
}

// ── Log de movimientos ────────────────────────────────────────────────────────

type movementRepo struct{ st *state }

func (r *movementRepo) CreateHeader(_ context.Context, h *entity.MovementHeader) error {
	r.st.nextHeaderID++
	h.ID = r.st.nextHeaderID
	r.st.headers[h.ID] = *h
	return nil
}

func (r *movementRepo) AppendDetail(_ context.Context, d *entity.MovementDetail) error {
	if _, ok := r.st.headers[d.HeaderID]; !ok {
		return fmt.Errorf("append detail: header %d not found", d.HeaderID)
	}
	if d.SignedQuantity.IsZero() {
		return fmt.Errorf("append detail: zero quantity")
	}
	r.st.nextDetailID++
	d.ID = r.st.nextDetailID
	r.st.details = append(r.st.details, *d)
	return nil
}

func (r *movementRepo) ListByBusinessNumber(_ context.Context, businessNumber string) ([]entity.MovementLine, error) {
	var out []entity.MovementLine
	for _, d := range r.st.details {
		h := r.st.headers[d.HeaderID]
		if h.BusinessNumber != businessNumber {
			continue
		}
		out = append(out, entity.MovementLine{
			MovementDetail: d,
			BusinessNumber: h.BusinessNumber,
			MovementType:   h.MovementType,
			WarehouseID:    h.WarehouseID,
			CorrelationID:  h.CorrelationID,
			CreatedBy:      h.CreatedBy,
		})
	}
	// details se anexa en orden de ID.
	return out, nil
}

// LockBusinessNumber no hace nada: Run ya serializa todas las transacciones.
func (r *movementRepo) LockBusinessNumber(context.Context, string) error { return nil }

// ── Reservas ──────────────────────────────────────────────────────────────────

type reservationRepo struct{ st *state }

func (r *reservationRepo) Create(_ context.Context, res *entity.Reservation) error {
	r.st.nextReservationID++
	res.ID = r.st.nextReservationID
	r.st.reservations[res.ID] = *res
	return nil
}

func (r *reservationRepo) GetByID(_ context.Context, id int64) (*entity.Reservation, error) {
	res, ok := r.st.reservations[id]
	if !ok {
		return nil, nil
	}
	return &res, nil
}

func (r *reservationRepo) GetForUpdate(ctx context.Context, id int64) (*entity.Reservation, error) {
	return r.GetByID(ctx, id)
}

func (r *reservationRepo) Update(_ context.Context, res *entity.Reservation) error {
	if _, ok := r.st.reservations[res.ID]; !ok {
		return fmt.Errorf("update reservation %d: not found", res.ID)
	}
	r.st.reservations[res.ID] = *res
	return nil
}

func (r *reservationRepo) ListByReference(_ context.Context, referenceNumber string) ([]*entity.Reservation, error) {
	var out []*entity.Reservation
	for _, res := range r.st.reservations {
		if res.ReferenceNumber == referenceNumber {
			res := res
			out = append(out, &res)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *reservationRepo) ListExpired(_ context.Context, now time.Time, limit int) ([]int64, error) {
	var ids []int64
	for id, res := range r.st.reservations {
		if res.Expired(now) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}
