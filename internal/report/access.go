package report

// AccessScope holds the site ids a caller may see, split by site type. The
// company prefix is stripped on construction; membership checks are by site
// id alone. An empty set means unrestricted, and that policy applies
// uniformly at every call site.
type AccessScope struct {
	production  map[string]struct{}
	consumption map[string]struct{}
}

// NewAccessScope builds a scope from raw "companyId_siteId" key lists as the
// auth collaborator supplies them. Malformed keys are skipped.
func NewAccessScope(productionKeys, consumptionKeys []string) AccessScope {
	return AccessScope{
		production:  siteIDSet(productionKeys),
		consumption: siteIDSet(consumptionKeys),
	}
}

func siteIDSet(keys []string) map[string]struct{} {
	set := make(map[string]struct{}, len(keys))
	for _, raw := range keys {
		key, err := ParseSiteKey(raw)
		if err != nil {
			continue
		}
		set[key.SiteID] = struct{}{}
	}
	return set
}

// ProductionIDs returns the accessible production site ids.
func (s AccessScope) ProductionIDs() []string {
	return setToList(s.production)
}

// ConsumptionIDs returns the accessible consumption site ids.
func (s AccessScope) ConsumptionIDs() []string {
	return setToList(s.consumption)
}

func setToList(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

// AllowsProduction reports whether a production site is visible.
func (s AccessScope) AllowsProduction(siteID string) bool {
	return allows(s.production, siteID)
}

// AllowsConsumption reports whether a consumption site is visible.
func (s AccessScope) AllowsConsumption(siteID string) bool {
	return allows(s.consumption, siteID)
}

// AllowsPair applies the two-sided check: an allocation pair is visible only
// when both its production and consumption endpoints are accessible.
func (s AccessScope) AllowsPair(pair PairKey) bool {
	return s.AllowsProduction(pair.ProductionID) && s.AllowsConsumption(pair.ConsumptionID)
}

func allows(set map[string]struct{}, siteID string) bool {
	if len(set) == 0 {
		return true
	}
	_, ok := set[siteID]
	return ok
}

// VisibleSite checks a plain site record through its embedded key fields.
// Records without a parseable site key are not visible.
func (s AccessScope) VisibleSite(rec RawRecord) bool {
	raw := FieldString(rec.Fields, "pk", "siteKey", "key")
	if raw == "" {
		return false
	}
	key, err := ParseSiteKey(raw)
	if err != nil {
		return false
	}
	switch rec.Source {
	case SourceConsumption:
		return s.AllowsConsumption(key.SiteID)
	default:
		return s.AllowsProduction(key.SiteID)
	}
}

// VisiblePair checks an allocation record through its embedded pair key,
// accepting both the 3-segment and legacy 2-segment serializations.
func (s AccessScope) VisiblePair(rec RawRecord) bool {
	raw := FieldString(rec.Fields, "pk", "pairKey", "key")
	if raw == "" {
		return false
	}
	pair, err := ParsePairKey(raw)
	if err != nil {
		return false
	}
	return s.AllowsPair(pair)
}
