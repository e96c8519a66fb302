package stock

import (
	"errors"
	"sort"
	"strings"

	"esnafpos-backend/internal/domain"
	"esnafpos-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Delta: Tek bir entity'nin stoğuna uygulanacak değişim. Negatif delta düşüm,
// pozitif delta giriştir. AllowNegative yalnızca reçete kaynaklı düşümlerde ve
// tenant politikası izin verdiğinde true olur.
type Delta struct {
	Kind          domain.EntityKind
	EntityID      uint
	Delta         decimal.Decimal
	AllowNegative bool
	Reason        models.MovementReason
	ReferenceID   *uint
	Note          string
}

// Applied: Commit edilen her delta için dönen sonuç satırı.
type Applied struct {
	Kind        domain.EntityKind `json:"kind"`
	EntityID    uint              `json:"entity_id"`
	Name        string            `json:"name"`
	Delta       decimal.Decimal   `json:"delta"`
	NewQuantity decimal.Decimal   `json:"new_quantity"`
}

// Eşzamanlı satışlar aynı satırda çakışırsa işlem bu kadar kez tekrar denenir.
const maxRetries = 3

// GetQuantity: Salt-okunur bakiye sorgusu.
func GetQuantity(db *gorm.DB, tenantID uint, kind domain.EntityKind, id uint) (decimal.Decimal, error) {
	switch kind {
	case domain.KindProduct:
		var p models.Product
		if err := findScoped(db, tenantID, kind, id, &p); err != nil {
			return decimal.Zero, err
		}
		if !p.RequiresStockTracking {
			return decimal.Zero, domain.ErrStockTrackingDisabled
		}
		return p.StockQuantity, nil
	case domain.KindRawMaterial:
		var m models.RawMaterial
		if err := findScoped(db, tenantID, kind, id, &m); err != nil {
			return decimal.Zero, err
		}
		return m.StockQuantity, nil
	}
	return decimal.Zero, &domain.InvalidItemTypeError{Value: string(kind)}
}

// ApplyDelta: Tek entity için kısayol.
func ApplyDelta(db *gorm.DB, tenantID uint, d Delta) (Applied, error) {
	applied, err := ApplyDeltas(db, tenantID, []Delta{d})
	if err != nil {
		return Applied{}, err
	}
	return applied[0], nil
}

// ApplyDeltas: Stok defterinin TEK mutasyon noktası. Tüm deltalar tek
// transaction'da uygulanır; herhangi biri başarısız olursa hiçbiri commit edilmez.
// Aynı entity'ye ait deltalar önce birleştirilir (bir satışta iki ürün aynı
// hammaddeyi tüketebilir). Satırlar Postgres'te FOR UPDATE ile kilitlenir,
// serileştirme çakışmasında sınırlı sayıda tekrar denenir.
func ApplyDeltas(db *gorm.DB, tenantID uint, deltas []Delta) ([]Applied, error) {
	if len(deltas) == 0 {
		return nil, nil
	}

	var applied []Applied
	var err error
	for attempt := 0; attempt < maxRetries; attempt++ {
		err = db.Transaction(func(tx *gorm.DB) error {
			var txErr error
			applied, txErr = ApplyDeltasTx(tx, tenantID, deltas)
			return txErr
		})
		if err == nil {
			return applied, nil
		}
		if !IsRetryableConflict(err) {
			return nil, err
		}
	}
	return nil, domain.ErrConcurrencyConflict
}

// ApplyDeltasTx: Transaction'ı zaten açmış çağıranlar için (ör. satış
// orkestrasyonu, satış kaydı ile stok düşümünü aynı transaction'da ister).
// Tekrar deneme sorumluluğu çağırana aittir.
func ApplyDeltasTx(tx *gorm.DB, tenantID uint, deltas []Delta) ([]Applied, error) {
	merged := coalesce(deltas)
	applied := make([]Applied, 0, len(merged))
	for _, d := range merged {
		a, err := applyOne(tx, tenantID, d)
		if err != nil {
			return nil, err
		}
		applied = append(applied, a)
	}
	return applied, nil
}

func applyOne(tx *gorm.DB, tenantID uint, d Delta) (Applied, error) {
	var name string
	var newQty decimal.Decimal

	switch d.Kind {
	case domain.KindProduct:
		var p models.Product
		if err := findScopedLocked(tx, tenantID, d.Kind, d.EntityID, &p); err != nil {
			return Applied{}, err
		}
		if !p.RequiresStockTracking {
			return Applied{}, domain.ErrStockTrackingDisabled
		}
		newQty = p.StockQuantity.Add(d.Delta)
		if newQty.IsNegative() && !d.AllowNegative {
			return Applied{}, &domain.InsufficientStockError{
				Kind:      d.Kind,
				ID:        p.ID,
				Name:      p.Name,
				Requested: d.Delta.Neg(),
				Available: p.StockQuantity,
			}
		}
		if err := tx.Model(&models.Product{}).Where("id = ?", p.ID).
			Update("stock_quantity", newQty).Error; err != nil {
			return Applied{}, err
		}
		name = p.Name

	case domain.KindRawMaterial:
		var m models.RawMaterial
		if err := findScopedLocked(tx, tenantID, d.Kind, d.EntityID, &m); err != nil {
			return Applied{}, err
		}
		newQty = m.StockQuantity.Add(d.Delta)
		if newQty.IsNegative() && !d.AllowNegative {
			return Applied{}, &domain.InsufficientStockError{
				Kind:      d.Kind,
				ID:        m.ID,
				Name:      m.Name,
				Requested: d.Delta.Neg(),
				Available: m.StockQuantity,
			}
		}
		if err := tx.Model(&models.RawMaterial{}).Where("id = ?", m.ID).
			Update("stock_quantity", newQty).Error; err != nil {
			return Applied{}, err
		}
		name = m.Name

	default:
		return Applied{}, &domain.InvalidItemTypeError{Value: string(d.Kind)}
	}

	// Günlük satırı: asla güncellenmez, düzeltmeler ters hareketle yapılır
	movement := models.StockMovement{
		TenantID:    tenantID,
		EntityKind:  string(d.Kind),
		EntityID:    d.EntityID,
		Delta:       d.Delta,
		NewQuantity: newQty,
		Reason:      d.Reason,
		ReferenceID: d.ReferenceID,
		Note:        d.Note,
	}
	if err := tx.Create(&movement).Error; err != nil {
		return Applied{}, err
	}

	return Applied{
		Kind:        d.Kind,
		EntityID:    d.EntityID,
		Name:        name,
		Delta:       d.Delta,
		NewQuantity: newQty,
	}, nil
}

// coalesce: Aynı (kind, id) çiftine ait deltaları toplar. Birleşik satırın
// negatife düşmesine ancak TÜM parçalar izin veriyorsa izin verilir.
// Çıktı kilit sırası deadlock'a yol açmasın diye deterministik sıralanır.
func coalesce(deltas []Delta) []Delta {
	type key struct {
		kind domain.EntityKind
		id   uint
	}
	merged := make(map[key]Delta)
	order := make([]key, 0, len(deltas))
	for _, d := range deltas {
		k := key{d.Kind, d.EntityID}
		if existing, ok := merged[k]; ok {
			existing.Delta = existing.Delta.Add(d.Delta)
			existing.AllowNegative = existing.AllowNegative && d.AllowNegative
			merged[k] = existing
		} else {
			merged[k] = d
			order = append(order, k)
		}
	}
	sort.Slice(order, func(i, j int) bool {
		if order[i].kind != order[j].kind {
			return order[i].kind < order[j].kind
		}
		return order[i].id < order[j].id
	})
	out := make([]Delta, 0, len(order))
	for _, k := range order {
		out = append(out, merged[k])
	}
	return out
}

func findScoped(db *gorm.DB, tenantID uint, kind domain.EntityKind, id uint, dest any) error {
	err := db.Where("id = ? AND tenant_id = ? AND is_active = ?", id, tenantID, true).First(dest).Error
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return classifyMiss(db, tenantID, kind, id)
	}
	return err
}

func findScopedLocked(tx *gorm.DB, tenantID uint, kind domain.EntityKind, id uint, dest any) error {
	q := tx
	// SQLite FOR UPDATE desteklemez; test ortamında tek yazar olduğu için gerekmez de
	if tx.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	err := q.Where("id = ? AND tenant_id = ? AND is_active = ?", id, tenantID, true).First(dest).Error
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return classifyMiss(tx, tenantID, kind, id)
	}
	return err
}

// classifyMiss: Kayıt başka bir tenant'ta varsa TenantMismatch; aynı tenant'ta
// ama pasifse veya hiç yoksa NotFound.
func classifyMiss(db *gorm.DB, tenantID uint, kind domain.EntityKind, id uint) error {
	var count int64
	switch kind {
	case domain.KindProduct:
		db.Model(&models.Product{}).Where("id = ? AND tenant_id <> ?", id, tenantID).Count(&count)
	case domain.KindRawMaterial:
		db.Model(&models.RawMaterial{}).Where("id = ? AND tenant_id <> ?", id, tenantID).Count(&count)
	}
	if count > 0 {
		return &domain.TenantMismatchError{Kind: kind, ID: id, TenantID: tenantID}
	}
	return &domain.NotFoundError{Kind: kind, ID: id}
}

// IsRetryableConflict: Postgres serileştirme/deadlock hataları geçicidir,
// işlem baştan denenebilir.
func IsRetryableConflict(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "deadlock detected") ||
		strings.Contains(msg, "could not serialize access")
}
