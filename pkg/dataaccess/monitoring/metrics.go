package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MongoLatency is the duration of Mongo queries.
	MongoLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "dataaccess_mongo_latency",
			Help: "Duration of Mongo queries",
		},
		[]string{"dal", "query", "database", "collection"},
	)

	// MongoTotalRequests is the total number of Mongo requests.
	MongoTotalRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dataaccess_mongo_total_requests",
			Help: "Total number of Mongo requests",
		},
		[]string{"dal", "query", "database", "collection"},
	)

	// SQLLatency is the duration of relational queries.
	SQLLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "dataaccess_sql_latency",
			Help: "Duration of SQL queries",
		},
		[]string{"dal", "query", "dialect", "table"},
	)

	// SQLTotalRequests is the total number of relational requests.
	SQLTotalRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dataaccess_sql_total_requests",
			Help: "Total number of SQL requests",
		},
		[]string{"dal", "query", "dialect", "table"},
	)
)

// MongoTimer counts a Mongo request and returns a timer for its latency.
func MongoTimer(dal, query, database, collection string) *prometheus.Timer {
	MongoTotalRequests.WithLabelValues(dal, query, database, collection).Inc()
	return prometheus.NewTimer(MongoLatency.WithLabelValues(dal, query, database, collection))
}

// SQLTimer counts a relational request and returns a timer for its latency.
func SQLTimer(dal, query, dialect, table string) *prometheus.Timer {
	SQLTotalRequests.WithLabelValues(dal, query, dialect, table).Inc()
	return prometheus.NewTimer(SQLLatency.WithLabelValues(dal, query, dialect, table))
}
