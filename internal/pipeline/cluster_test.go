package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClusterIDSameStorySameHour(t *testing.T) {
	// Same normalized title, same country, same hour bucket.
	a := ClusterID("Port closed after storm", "Kenya", time.Date(2026, 3, 1, 10, 5, 0, 0, time.UTC))
	b := ClusterID("Port Closed After Storm!!", "Kenya", time.Date(2026, 3, 1, 10, 42, 0, 0, time.UTC))
	assert.Equal(t, a, b)
	assert.Len(t, a, 20)
}

func TestClusterIDSensitivity(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 5, 0, 0, time.UTC)
	base := ClusterID("Port closed after storm", "Kenya", at)

	assert.NotEqual(t, base, ClusterID("Airport closed after storm", "Kenya", at), "title change")
	assert.NotEqual(t, base, ClusterID("Port closed after storm", "Nigeria", at), "country change")
	assert.NotEqual(t, base, ClusterID("Port closed after storm", "Kenya", at.Add(time.Hour)), "hour change")
}

func TestClusterIDFieldBoundaries(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	// Tokens must not migrate between the title and country fields.
	assert.NotEqual(t,
		ClusterID("port closed", "kenya coast", at),
		ClusterID("port closed kenya", "coast", at))
}

func TestClusterIDEmptyCountry(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	a := ClusterID("Global markets slide", "", at)
	b := ClusterID("Global Markets Slide", "", at)
	assert.Equal(t, a, b)
}

func TestClusterIDHourBucketUsesUTC(t *testing.T) {
	utc := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)
	offset := utc.In(time.FixedZone("UTC+3", 3*3600))
	assert.Equal(t,
		ClusterID("Port closed", "Kenya", utc),
		ClusterID("Port closed", "Kenya", offset))
}

func TestClusterIDLongTitleClipped(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	long := "word "
	for len(long) < 100 {
		long += "word "
	}
	// Differences past the 80-char clip do not change the cluster.
	assert.Equal(t,
		ClusterID(long+" alpha", "Kenya", at),
		ClusterID(long+" omega", "Kenya", at))
}
