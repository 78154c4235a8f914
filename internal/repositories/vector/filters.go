package vector

import (
	"github.com/qdrant/go-client/qdrant"
	"github.com/reelstack/recoserve/internal/repositories"
)

func buildMatchFilterCondition(field string, match *qdrant.Match, isNegated bool) *FilterCondition {
	return &FilterCondition{
		Condition: &qdrant.Condition{
			ConditionOneOf: &qdrant.Condition_Field{
				Field: &qdrant.FieldCondition{
					Key:   field,
					Match: match,
				},
			},
		},
		IsNegated: isNegated,
	}
}

func buildRangeFilterCondition(field string, r *qdrant.Range) *FilterCondition {
	return &FilterCondition{
		Condition: &qdrant.Condition{
			ConditionOneOf: &qdrant.Condition_Field{
				Field: &qdrant.FieldCondition{
					Key:   field,
					Range: r,
				},
			},
		},
		IsNegated: false,
	}
}

func buildHasIdCondition(ids []int64) *FilterCondition {
	pointIds := make([]*qdrant.PointId, 0, len(ids))
	for _, id := range ids {
		pointIds = append(pointIds, &qdrant.PointId{
			PointIdOptions: &qdrant.PointId_Num{Num: uint64(id)},
		})
	}
	return &FilterCondition{
		Condition: &qdrant.Condition{
			ConditionOneOf: &qdrant.Condition_HasId{
				HasId: &qdrant.HasIdCondition{HasId: pointIds},
			},
		},
		IsNegated: true,
	}
}

// buildFilterConditions compiles the attribute filter and id exclusion list
// into qdrant conditions. All attribute constraints are conjunctive.
func buildFilterConditions(filter *repositories.Filter, exclude []int64) []*FilterCondition {
	conditions := make([]*FilterCondition, 0)
	if filter != nil {
		if len(filter.Genres) > 0 {
			conditions = append(conditions, buildMatchFilterCondition(
				FieldGenres,
				&qdrant.Match{MatchValue: &qdrant.Match_Keywords{Keywords: &qdrant.RepeatedStrings{Strings: filter.Genres}}},
				false,
			))
		}
		if filter.YearMin != 0 || filter.YearMax != 0 {
			yearRange := &qdrant.Range{}
			if filter.YearMin != 0 {
				gte := float64(filter.YearMin)
				yearRange.Gte = &gte
			}
			if filter.YearMax != 0 {
				lte := float64(filter.YearMax)
				yearRange.Lte = &lte
			}
			conditions = append(conditions, buildRangeFilterCondition(FieldYear, yearRange))
		}
		if filter.RatingMin != 0 {
			gte := filter.RatingMin
			conditions = append(conditions, buildRangeFilterCondition(FieldRating, &qdrant.Range{Gte: &gte}))
		}
	}
	if len(exclude) > 0 {
		conditions = append(conditions, buildHasIdCondition(exclude))
	}
	return conditions
}

// toQdrantFilter splits the conditions into must / must_not clauses.
func toQdrantFilter(conditions []*FilterCondition) *qdrant.Filter {
	if len(conditions) == 0 {
		return nil
	}
	must := make([]*qdrant.Condition, 0, len(conditions))
	mustNot := make([]*qdrant.Condition, 0)
	for _, c := range conditions {
		if c.IsNegated {
			mustNot = append(mustNot, c.Condition)
		} else {
			must = append(must, c.Condition)
		}
	}
	return &qdrant.Filter{
		Must:    must,
		MustNot: mustNot,
	}
}
