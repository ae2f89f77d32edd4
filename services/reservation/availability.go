package reservation

import (
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	reservationRepo "reservo/database/repository/reservation"
	"reservo/models"
)

// Validator checks a requested slot against operating hours, table inventory
// and the product catalog before commit.
type Validator struct {
	Repo   reservationRepo.ReservationRepository
	Logger *zap.Logger
}

// AvailabilityResult reports whether a requested slot works and, when it
// does not, why and what to offer instead.
type AvailabilityResult struct {
	IsAvailable  bool
	Reason       string
	Alternatives []string
}

// ProductIssue describes a rejected product selection.
type ProductIssue struct {
	ProductID string
	Reason    string
}

// CheckHours validates the requested time against the business's operating
// windows. When out of range it proposes up to three in-range times on a
// 30-minute grid, nearest to the request first.
func (v *Validator) CheckHours(biz *models.Business, timeOfDay string) AvailabilityResult {
	if len(biz.Config.Hours) == 0 {
		return AvailabilityResult{IsAvailable: true}
	}
	requested, ok := parseMinutes(timeOfDay)
	if !ok {
		return AvailabilityResult{IsAvailable: false, Reason: ReasonTimeOutOfRange}
	}
	for _, w := range biz.Config.Hours {
		open, okO := parseMinutes(w.Open)
		close, okC := parseMinutes(w.Close)
		if okO && okC && requested >= open && requested <= close {
			return AvailabilityResult{IsAvailable: true}
		}
	}
	alts := v.nearestSlots(biz, requested, 3)
	v.Logger.Debug("requested time out of operating hours",
		zap.String("businessId", biz.ID),
		zap.String("time", timeOfDay),
		zap.Strings("alternatives", alts))
	return AvailabilityResult{
		IsAvailable:  false,
		Reason:       ReasonTimeOutOfRange,
		Alternatives: alts,
	}
}

// nearestSlots enumerates the 30-minute grid of every operating window and
// ranks slots by distance from the requested time.
func (v *Validator) nearestSlots(biz *models.Business, requested, limit int) []string {
	var slots []int
	seen := map[int]bool{}
	for _, w := range biz.Config.Hours {
		open, okO := parseMinutes(w.Open)
		close, okC := parseMinutes(w.Close)
		if !okO || !okC {
			continue
		}
		start := ((open + 29) / 30) * 30
		for m := start; m <= close; m += 30 {
			if !seen[m] {
				seen[m] = true
				slots = append(slots, m)
			}
		}
	}
	sort.Slice(slots, func(i, j int) bool {
		di, dj := abs(slots[i]-requested), abs(slots[j]-requested)
		if di != dj {
			return di < dj
		}
		return slots[i] < slots[j]
	})
	if len(slots) > limit {
		slots = slots[:limit]
	}
	out := make([]string, len(slots))
	for i, m := range slots {
		out[i] = formatMinutes(m)
	}
	return out
}

// AssignTable resolves the table for a dine-in reservation. An explicit
// tableID is validated for existence, capacity and conflicts; otherwise the
// smallest free table that fits the party is picked.
func (v *Validator) AssignTable(biz *models.Business, date, timeOfDay, tableID string, guests int) (string, AvailabilityResult) {
	taken, err := v.takenTables(biz.ID, date, timeOfDay)
	if err != nil {
		v.Logger.Error("table conflict lookup failed", zap.String("businessId", biz.ID), zap.Error(err))
		// On lookup failure assume no conflicts rather than blocking the turn.
		taken = map[string]bool{}
	}

	if tableID != "" {
		for _, t := range biz.Config.Tables {
			if t.ID != tableID && !strings.EqualFold(t.Name, tableID) {
				continue
			}
			if guests > 0 && t.Capacity < guests {
				return "", AvailabilityResult{Reason: ReasonTableTooSmall, Alternatives: v.fittingTables(biz, taken, guests)}
			}
			if taken[t.ID] {
				return "", AvailabilityResult{Reason: ReasonTableTaken, Alternatives: v.fittingTables(biz, taken, guests)}
			}
			return t.ID, AvailabilityResult{IsAvailable: true}
		}
		return "", AvailabilityResult{Reason: ReasonNoTableAvailable, Alternatives: v.fittingTables(biz, taken, guests)}
	}

	candidates := make([]models.TableDefinition, 0, len(biz.Config.Tables))
	for _, t := range biz.Config.Tables {
		if taken[t.ID] {
			continue
		}
		if guests > 0 && t.Capacity < guests {
			continue
		}
		candidates = append(candidates, t)
	}
	if len(candidates) == 0 {
		return "", AvailabilityResult{Reason: ReasonNoTableAvailable}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Capacity != candidates[j].Capacity {
			return candidates[i].Capacity < candidates[j].Capacity
		}
		return candidates[i].ID < candidates[j].ID
	})
	return candidates[0].ID, AvailabilityResult{IsAvailable: true}
}

func (v *Validator) takenTables(businessID, date, timeOfDay string) (map[string]bool, error) {
	active, err := v.Repo.ActiveAt(businessID, date, timeOfDay)
	if err != nil {
		return nil, err
	}
	taken := map[string]bool{}
	for _, r := range active {
		if r.TableID != "" {
			taken[r.TableID] = true
		}
	}
	return taken, nil
}

func (v *Validator) fittingTables(biz *models.Business, taken map[string]bool, guests int) []string {
	var names []string
	for _, t := range biz.Config.Tables {
		if taken[t.ID] {
			continue
		}
		if guests > 0 && t.Capacity < guests {
			continue
		}
		names = append(names, t.Name)
	}
	return names
}

// ValidateProducts splits a selection into orderable items and per-item
// issues. Valid items survive even when others are rejected.
func (v *Validator) ValidateProducts(biz *models.Business, selections []models.ProductSelection) ([]models.ProductSelection, []ProductIssue) {
	var valid []models.ProductSelection
	var issues []ProductIssue
	for _, sel := range selections {
		p, ok := biz.ProductByID(sel.ProductID)
		if !ok {
			issues = append(issues, ProductIssue{ProductID: sel.ProductID, Reason: ReasonProductNotFound})
			continue
		}
		if !p.Available {
			issues = append(issues, ProductIssue{ProductID: sel.ProductID, Reason: ReasonProductOff})
			continue
		}
		qty := sel.Quantity
		if qty <= 0 {
			qty = 1
		}
		if p.TrackStock && p.Stock < qty {
			issues = append(issues, ProductIssue{ProductID: sel.ProductID, Reason: ReasonInsufficientStock})
			continue
		}
		valid = append(valid, models.ProductSelection{ProductID: p.ID, Quantity: qty})
	}
	return valid, issues
}

// OrderTotal prices a validated selection against the catalog.
func OrderTotal(biz *models.Business, selections []models.ProductSelection) float64 {
	var total float64
	for _, sel := range selections {
		if p, ok := biz.ProductByID(sel.ProductID); ok {
			total += p.Price * float64(sel.Quantity)
		}
	}
	return total
}

func parseMinutes(hhmm string) (int, bool) {
	parts := strings.SplitN(hhmm, ":", 2)
	if len(parts) != 2 {
		return 0, false
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}

func formatMinutes(m int) string {
	h := m / 60
	mm := m % 60
	return pad2(h) + ":" + pad2(mm)
}

func pad2(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
