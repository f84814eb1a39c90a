package source

import (
	"context"
	"io"
	"strings"
	"testing"

	"koala-diff/core/row"
	"koala-diff/core/storage/mocks"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestOpenObject(t *testing.T) {
	client := new(mocks.Client)
	client.On("StatObject", mock.Anything, "datasets", "orders.csv", mock.Anything).
		Return(minio.ObjectInfo{Key: "orders.csv", Size: 20}, nil)
	client.On("GetObject", mock.Anything, "datasets", "orders.csv", mock.Anything).
		Return(io.NopCloser(strings.NewReader("id,qty\n1,5\n2,6\n")), nil)

	s, err := OpenObject(context.Background(), client, "datasets", "orders.csv")
	require.NoError(t, err)

	require.Equal(t, []string{"id", "qty"}, s.Schema().Names())
	rows := drain(t, s)
	require.Len(t, rows, 2)
	assert.True(t, rows[1][1].EqualKey(row.Int(6)))

	assert.NoError(t, s.Close())
	client.AssertExpectations(t)
}

func TestOpenObjectMissing(t *testing.T) {
	client := new(mocks.Client)
	client.On("StatObject", mock.Anything, "datasets", "nope.csv", mock.Anything).
		Return(minio.ObjectInfo{}, assert.AnError)

	_, err := OpenObject(context.Background(), client, "datasets", "nope.csv")
	assert.ErrorContains(t, err, "stat s3://datasets/nope.csv")
}
