//go:build integration

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"trustlink/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	StoreContractSuite
}

func TestRedisStoreSuite(t *testing.T) {
	rc := containers.NewRedisContainer(t)

	s := new(RedisStoreSuite)
	s.newStore = func() Store {
		require.NoError(t, rc.FlushAll(context.Background()))
		return NewRedis(rc.Client, WithKeyPrefix("trustlink-test"))
	}
	suite.Run(t, s)
}

type PostgresStoreSuite struct {
	StoreContractSuite
}

func TestPostgresStoreSuite(t *testing.T) {
	pc := containers.NewPostgresContainer(t)
	ctx := context.Background()
	require.NoError(t, NewPostgres(pc.DB).Migrate(ctx))

	s := new(PostgresStoreSuite)
	s.newStore = func() Store {
		require.NoError(t, pc.Truncate(ctx, "attestation_index", "attestations", "registry_issuers", "registry_admin"))
		return NewPostgres(pc.DB)
	}
	suite.Run(t, s)
}
