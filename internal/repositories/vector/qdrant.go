package vector

import (
	"context"
	"sync"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"github.com/reelstack/recoserve/internal/apperr"
	"github.com/reelstack/recoserve/internal/config/structs"
	"github.com/reelstack/recoserve/internal/repositories"
	"github.com/reelstack/recoserve/pkg/metric"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"google.golang.org/grpc"
	"google.golang.org/grpc/resolver"
)

var (
	vectorDb Database
	syncOnce sync.Once
)

const (
	scrollPageSize = 1024
)

type Qdrant struct {
	ReadClient     *qdrant.Client
	WriteClient    *qdrant.Client
	CollectionName string
	Deadline       int
	WriteDeadline  int
	VectorDim      uint64
}

// initQdrantInstance initializes and returns a Database instance for Qdrant.
func initQdrantInstance() Database {
	if vectorDb == nil {
		syncOnce.Do(func() {
			vectorDb = createQdrantInstance()
		})
	}
	return vectorDb
}

// createQdrantInstance sets up the Qdrant instance with its configuration.
func createQdrantInstance() *Qdrant {
	resolver.SetDefaultScheme("dns")
	for _, key := range []string{"QDRANT_HOST", "QDRANT_PORT", "QDRANT_COLLECTION", "QDRANT_DEADLINE_MS", "QDRANT_WRITE_DEADLINE_MS"} {
		if !viper.IsSet(key) {
			log.Panic().Msgf("%s is not set", key)
		}
	}
	writeHost := viper.GetString("QDRANT_HOST")
	readHost := writeHost
	if viper.IsSet("QDRANT_READ_HOST") {
		readHost = viper.GetString("QDRANT_READ_HOST")
	}
	port := viper.GetInt("QDRANT_PORT")

	readClient, err := createQdrantClient(readHost, port)
	if err != nil {
		log.Panic().Msgf("Could not create qdrant read client: %v", err)
	}
	writeClient := readClient
	if readHost != writeHost {
		writeClient, err = createQdrantClient(writeHost, port)
		if err != nil {
			log.Panic().Msgf("Could not create qdrant write client: %v", err)
		}
	}

	q := &Qdrant{
		ReadClient:     readClient,
		WriteClient:    writeClient,
		CollectionName: viper.GetString("QDRANT_COLLECTION"),
		Deadline:       viper.GetInt("QDRANT_DEADLINE_MS"),
		WriteDeadline:  viper.GetInt("QDRANT_WRITE_DEADLINE_MS"),
		VectorDim:      uint64(structs.GetAppConfig().Configs.EmbeddingDim),
	}
	if err := q.HealthCheck(); err != nil {
		log.Error().Err(err).Msg("Qdrant health check failed at startup")
	}
	return q
}

// createQdrantClient creates a new Qdrant client for the given host.
func createQdrantClient(host string, port int) (*qdrant.Client, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
		GrpcOptions: []grpc.DialOption{
			grpc.WithInsecure(),
			grpc.WithDefaultServiceConfig(`{"loadBalancingPolicy":"round_robin"}`),
		},
	})
	if err != nil {
		log.Error().Msgf("Could not create qdrant client: %v", err)
		return nil, err
	}
	return client, nil
}

func (q *Qdrant) readCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), time.Duration(q.Deadline)*time.Millisecond)
}

func (q *Qdrant) writeCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), time.Duration(q.WriteDeadline)*time.Millisecond)
}

// EnsureCollection creates the collection and its payload field indexes if missing.
func (q *Qdrant) EnsureCollection() error {
	ctx, cancel := q.writeCtx()
	defer cancel()
	collectionsClient := qdrant.NewCollectionsClient(q.WriteClient.GetConnection())
	_, err := collectionsClient.Get(ctx, &qdrant.GetCollectionInfoRequest{
		CollectionName: q.CollectionName,
	})
	if err == nil {
		return nil
	}

	createCtx, createCancel := q.writeCtx()
	defer createCancel()
	_, err = collectionsClient.Create(createCtx, &qdrant.CreateCollection{
		CollectionName: q.CollectionName,
		VectorsConfig: &qdrant.VectorsConfig{Config: &qdrant.VectorsConfig_Params{
			Params: &qdrant.VectorParams{
				Size:     q.VectorDim,
				Distance: qdrant.Distance_Cosine,
			},
		}},
	})
	if err != nil {
		log.Error().Msgf("Could not create collection %s: %v", q.CollectionName, err)
		return apperr.Transient("create collection %s: %v", q.CollectionName, err)
	}
	log.Info().Msgf("Collection created: %v", q.CollectionName)
	return q.createFieldIndexes()
}

// createFieldIndexes creates payload indexes for every filterable field.
func (q *Qdrant) createFieldIndexes() error {
	writePointsClient := qdrant.NewPointsClient(q.WriteClient.GetConnection())
	fieldTypes := map[string]qdrant.FieldType{
		FieldGenres: qdrant.FieldType_FieldTypeKeyword,
		FieldYear:   qdrant.FieldType_FieldTypeInteger,
		FieldRating: qdrant.FieldType_FieldTypeFloat,
	}
	for field, fieldType := range fieldTypes {
		ft := fieldType
		_, err := writePointsClient.CreateFieldIndex(context.Background(), &qdrant.CreateFieldIndexCollection{
			CollectionName: q.CollectionName,
			FieldName:      field,
			FieldType:      &ft,
		})
		if err != nil {
			log.Error().Msgf("Could not create field index %s: %v", field, err)
			return apperr.Transient("create field index %s: %v", field, err)
		}
	}
	return nil
}

// BulkUpsert upserts a batch of entries into the collection.
func (q *Qdrant) BulkUpsert(entries []repositories.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	startTime := time.Now()
	metric.Incr("vector_db_bulk_upsert", nil)
	upsertPoints := prepareUpsertPoints(entries)
	waitUpsert := true
	ctx, cancel := q.writeCtx()
	defer cancel()
	writePointsClient := qdrant.NewPointsClient(q.WriteClient.GetConnection())
	_, err := writePointsClient.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.CollectionName,
		Wait:           &waitUpsert,
		Points:         upsertPoints,
	})
	if err != nil {
		log.Error().Msgf("Could not upsert points: %v", err)
		metric.Incr("vector_db_bulk_upsert_error", nil)
		return apperr.Transient("qdrant upsert: %v", err)
	}
	metric.Timing("vector_db_bulk_upsert_latency", time.Since(startTime), nil)
	return nil
}

// BulkDelete deletes a batch of points from the collection.
func (q *Qdrant) BulkDelete(ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	startTime := time.Now()
	metric.Incr("vector_db_bulk_delete", nil)
	deletePoints := make([]*qdrant.PointId, 0, len(ids))
	for _, id := range ids {
		deletePoints = append(deletePoints, &qdrant.PointId{
			PointIdOptions: &qdrant.PointId_Num{Num: uint64(id)},
		})
	}
	waitDelete := true
	ctx, cancel := q.writeCtx()
	defer cancel()
	writePointsClient := qdrant.NewPointsClient(q.WriteClient.GetConnection())
	_, err := writePointsClient.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.CollectionName,
		Wait:           &waitDelete,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Points{
				Points: &qdrant.PointsIdsList{Ids: deletePoints},
			},
		},
	})
	if err != nil {
		log.Error().Msgf("Failed to delete points: %v", err)
		metric.Incr("vector_db_bulk_delete_error", nil)
		return apperr.Transient("qdrant delete: %v", err)
	}
	metric.Timing("vector_db_bulk_delete_latency", time.Since(startTime), nil)
	return nil
}

// SearchFiltered runs a filtered vector search against the read client.
func (q *Qdrant) SearchFiltered(request *SearchRequest, metricTags []string) ([]repositories.Candidate, error) {
	startTime := time.Now()
	metric.Incr("vector_db_query", metricTags)
	filter := toQdrantFilter(buildFilterConditions(request.Filter, request.Exclude))
	ctx, cancel := q.readCtx()
	defer cancel()
	readPointsClient := qdrant.NewPointsClient(q.ReadClient.GetConnection())
	response, err := readPointsClient.Search(ctx, &qdrant.SearchPoints{
		CollectionName: q.CollectionName,
		Vector:         request.Vector,
		Limit:          uint64(request.Limit),
		Filter:         filter,
	})
	if err != nil {
		metric.Incr("vector_db_query_failure", metricTags)
		log.Error().Msgf("Error fetching candidates for request %+v, error %+v", *request, err)
		return nil, apperr.Transient("qdrant search: %v", err)
	}
	candidates := make([]repositories.Candidate, 0, len(response.GetResult()))
	for _, point := range response.GetResult() {
		candidates = append(candidates, repositories.Candidate{
			ID:    int64(point.GetId().GetNum()),
			Score: point.GetScore(),
		})
	}
	metric.Timing("vector_db_query_latency", time.Since(startTime), metricTags)
	return candidates, nil
}

// ScrollAll pages through every point in the collection with vectors and payload.
func (q *Qdrant) ScrollAll() ([]repositories.Entry, error) {
	readPointsClient := qdrant.NewPointsClient(q.ReadClient.GetConnection())
	entries := make([]repositories.Entry, 0)
	limit := uint32(scrollPageSize)
	var offset *qdrant.PointId
	for {
		ctx, cancel := q.readCtx()
		response, err := readPointsClient.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: q.CollectionName,
			Limit:          &limit,
			Offset:         offset,
			WithVectors:    qdrant.NewWithVectors(true),
			WithPayload:    qdrant.NewWithPayload(true),
		})
		cancel()
		if err != nil {
			log.Error().Msgf("Failed to scroll collection %s: %v", q.CollectionName, err)
			return nil, apperr.Transient("qdrant scroll: %v", err)
		}
		for _, point := range response.GetResult() {
			entries = append(entries, retrievedPointToEntry(point))
		}
		offset = response.GetNextPageOffset()
		if offset == nil {
			break
		}
	}
	return entries, nil
}

// CollectionInfo retrieves point counts and status for the collection.
func (q *Qdrant) CollectionInfo() (*CollectionInfoResponse, error) {
	ctx, cancel := q.readCtx()
	defer cancel()
	collectionsClient := qdrant.NewCollectionsClient(q.ReadClient.GetConnection())
	response, err := collectionsClient.Get(ctx, &qdrant.GetCollectionInfoRequest{
		CollectionName: q.CollectionName,
	})
	if err != nil || response == nil {
		log.Error().Msgf("Failed to get collection info for %s: %v", q.CollectionName, err)
		return nil, apperr.Transient("qdrant collection info: %v", err)
	}
	result := response.GetResult()
	return &CollectionInfoResponse{
		Status:              result.GetStatus().String(),
		PointsCount:         float64(result.GetPointsCount()),
		IndexedVectorsCount: float64(result.GetIndexedVectorsCount()),
	}, nil
}

// HealthCheck pings the read client.
func (q *Qdrant) HealthCheck() error {
	ctx, cancel := q.readCtx()
	defer cancel()
	if _, err := q.ReadClient.HealthCheck(ctx); err != nil {
		return apperr.Transient("qdrant health check: %v", err)
	}
	return nil
}

// prepareUpsertPoints converts entries to qdrant point structs with payload.
func prepareUpsertPoints(entries []repositories.Entry) []*qdrant.PointStruct {
	var upsertPoints []*qdrant.PointStruct
	for _, e := range entries {
		genreValues := make([]*qdrant.Value, 0, len(e.Genres))
		for _, g := range e.Genres {
			genreValues = append(genreValues, &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: g}})
		}
		payload := map[string]*qdrant.Value{
			FieldGenres: {Kind: &qdrant.Value_ListValue{ListValue: &qdrant.ListValue{Values: genreValues}}},
			FieldYear:   {Kind: &qdrant.Value_IntegerValue{IntegerValue: e.Year}},
			FieldRating: {Kind: &qdrant.Value_DoubleValue{DoubleValue: e.Rating}},
		}
		upsertPoints = append(upsertPoints, &qdrant.PointStruct{
			Id: &qdrant.PointId{
				PointIdOptions: &qdrant.PointId_Num{Num: uint64(e.ID)},
			},
			Payload: payload,
			Vectors: &qdrant.Vectors{VectorsOptions: &qdrant.Vectors_Vector{Vector: &qdrant.Vector{Data: e.Vector}}},
		})
	}
	return upsertPoints
}

// retrievedPointToEntry maps a scrolled point back to an entry.
func retrievedPointToEntry(point *qdrant.RetrievedPoint) repositories.Entry {
	entry := repositories.Entry{
		ID:     int64(point.GetId().GetNum()),
		Vector: point.GetVectors().GetVector().GetData(),
	}
	payload := point.GetPayload()
	if v, ok := payload[FieldGenres]; ok {
		for _, item := range v.GetListValue().GetValues() {
			entry.Genres = append(entry.Genres, item.GetStringValue())
		}
	}
	if v, ok := payload[FieldYear]; ok {
		entry.Year = v.GetIntegerValue()
	}
	if v, ok := payload[FieldRating]; ok {
		entry.Rating = v.GetDoubleValue()
	}
	return entry
}
