package client

import (
	"context"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kitchensync/internal/client/mocks"
	"github.com/roach88/kitchensync/internal/model"
)

func expectAll(src *mocks.MockSource) {
	src.EXPECT().Categories(gomock.Any()).Return([]model.Category{{ID: "c1", Name: "Mains"}}, nil)
	src.EXPECT().Products(gomock.Any()).Return([]model.Product{{ID: "p1", Name: "Burger", CategoryID: "c1", Price: 850, Active: true}}, nil)
	src.EXPECT().Stations(gomock.Any()).Return([]model.Station{}, nil)
	src.EXPECT().Events(gomock.Any()).Return(nil, nil)
	src.EXPECT().Orders(gomock.Any()).Return([]model.Order{{ID: "o1", SequentialID: 1, Status: model.StatusDraft}}, nil)
	src.EXPECT().OrderItems(gomock.Any()).Return(nil, nil)
	src.EXPECT().Settings(gomock.Any()).Return([]model.Settings{{ID: model.SettingsID}}, nil)
}

func TestMirror_BootstrapLoadsEveryCacheOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := mocks.NewMockSource(ctrl)
	expectAll(src)

	m := NewMirror(nil)
	require.NoError(t, m.Bootstrap(context.Background(), src, 2))

	assert.Equal(t, 1, m.Categories.View().Len())
	assert.Equal(t, 1, m.Products.View().Len())
	assert.Equal(t, 1, m.Orders.View().Len())
	_, ok := m.Settings.View().Get(model.SettingsID)
	assert.True(t, ok)
}

func TestMirror_BootstrapSubset(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := mocks.NewMockSource(ctrl)
	src.EXPECT().Orders(gomock.Any()).Return([]model.Order{{ID: "o1"}}, nil)
	src.EXPECT().OrderItems(gomock.Any()).Return(nil, nil)

	m := NewMirror(nil)
	require.NoError(t, m.Bootstrap(context.Background(), src, 0, model.EntityOrder, model.EntityOrderItem))
	assert.Equal(t, 1, m.Orders.View().Len())
}

func TestMirror_BootstrapFailureIsJoinedAndIsolated(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := mocks.NewMockSource(ctrl)
	boom := errors.New("502 bad gateway")

	src.EXPECT().Categories(gomock.Any()).Return(nil, boom)
	src.EXPECT().Products(gomock.Any()).Return([]model.Product{{ID: "p1"}}, nil)
	src.EXPECT().Stations(gomock.Any()).Return(nil, nil)
	src.EXPECT().Events(gomock.Any()).Return(nil, nil)
	src.EXPECT().Orders(gomock.Any()).Return(nil, nil)
	src.EXPECT().OrderItems(gomock.Any()).Return(nil, nil)
	src.EXPECT().Settings(gomock.Any()).Return(nil, nil)

	m := NewMirror(nil)
	err := m.Bootstrap(context.Background(), src, 3)
	require.ErrorIs(t, err, boom)

	assert.Equal(t, 0, m.Categories.View().Len(), "failed cache stays empty")
	assert.Equal(t, 1, m.Products.View().Len(), "other caches still load")
}

func TestMirror_ApplyRoutesByType(t *testing.T) {
	m := NewMirror(nil)

	env, err := model.Added(model.Event{ID: "e1", Name: "Fair"})
	require.NoError(t, err)
	require.NoError(t, m.Apply(env))
	assert.Equal(t, 1, m.Events.View().Len())
	assert.Equal(t, 0, m.Categories.View().Len())

	err = m.Apply(model.Envelope{EntityType: "Pizza", Operation: model.OpAdd, Payload: []byte(`{}`)})
	assert.Error(t, err)
}
