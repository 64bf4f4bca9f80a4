package services

import (
	"context"
	"strings"
	"testing"

	"github.com/kendall-kelly/delivery-admin-api/models"
	"github.com/kendall-kelly/delivery-admin-api/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocationService(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := NewLocationService(db)
	ctx := context.Background()

	downtown, err := svc.Create(ctx, LocationInput{Name: "Downtown"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, LocationInput{Name: "Airport"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, LocationInput{Name: "Downtown"})
	var cerr *ConflictError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "LOCATION_EXISTS", cerr.Code)

	list, err := svc.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Airport", list[0].Name)

	address := "King Hussein St."
	renamed, err := svc.Update(ctx, downtown.ID, LocationInput{Name: "City Center", Address: &address})
	require.NoError(t, err)
	assert.Equal(t, "City Center", renamed.Name)

	found, err := svc.List(ctx, "city")
	require.NoError(t, err)
	assert.Len(t, found, 1)

	require.NoError(t, svc.Delete(ctx, downtown.ID))
	var nerr *NotFoundError
	require.ErrorAs(t, svc.Delete(ctx, downtown.ID), &nerr)
}

func TestProductService(t *testing.T) {
	db := testutil.NewTestDB(t)
	s3 := NewMockS3Service()
	svc := NewProductService(db, NewImageService(s3))
	ctx := context.Background()

	product, err := svc.Create(ctx, ProductInput{Name: "Water 20L", AdminPrice: testutil.Money(t, "10.00")})
	require.NoError(t, err)

	_, err = svc.Create(ctx, ProductInput{Name: "Broken", AdminPrice: testutil.Money(t, "-1")})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "INVALID_PRICE", verr.Code)

	updated, err := svc.Update(ctx, product.ID, ProductInput{Name: "Water 19L", AdminPrice: testutil.Money(t, "11.25")})
	require.NoError(t, err)
	assert.Equal(t, "Water 19L", updated.Name)
	assert.True(t, testutil.Money(t, "11.25").Equal(updated.AdminPrice))

	withPhoto, err := svc.SetPhoto(ctx, product.ID, testutil.FileHeader(t, "water.png", testutil.PNG))
	require.NoError(t, err)
	require.NotNil(t, withPhoto.PhotoKey)
	assert.True(t, strings.HasPrefix(*withPhoto.PhotoKey, ProductPhotoFolder+"/"))
	assert.True(t, strings.HasSuffix(*withPhoto.PhotoKey, ".png"))
	require.NotNil(t, withPhoto.PhotoURL)
	assert.True(t, s3.FileExists(*withPhoto.PhotoKey))
	assert.Equal(t, "image/png", s3.ContentType(*withPhoto.PhotoKey))

	firstKey := *withPhoto.PhotoKey
	replaced, err := svc.SetPhoto(ctx, product.ID, testutil.FileHeader(t, "water2.png", testutil.PNG))
	require.NoError(t, err)
	assert.NotEqual(t, firstKey, *replaced.PhotoKey)
	assert.False(t, s3.FileExists(firstKey))

	_, err = svc.SetPhoto(ctx, product.ID, testutil.FileHeader(t, "notes.png", []byte("plain text")))
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "INVALID_FILE_FORMAT", verr.Code)

	cleared, err := svc.RemovePhoto(ctx, product.ID)
	require.NoError(t, err)
	assert.Nil(t, cleared.PhotoKey)
	assert.False(t, s3.FileExists(*replaced.PhotoKey))
}

func TestProductDeleteKeepsProductsInUse(t *testing.T) {
	db := testutil.NewTestDB(t)
	f := testutil.Seed(t, db)
	testutil.SetDriverPrice(t, db, f.Driver.ID, f.Gas.ID, "8")
	svc := NewProductService(db, nil)
	ctx := context.Background()

	_, err := newOrderService(db, nil).Create(ctx, CreateOrderInput{
		ClientID: f.Client.ID,
		Location: testutil.DefaultLocation,
		Items:    []LineInput{{ProductID: f.Water.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	var cerr *ConflictError
	require.ErrorAs(t, svc.Delete(ctx, f.Water.ID), &cerr)
	assert.Equal(t, "PRODUCT_IN_USE", cerr.Code)

	require.NoError(t, svc.Delete(ctx, f.Gas.ID))
	assert.Zero(t, countRows(t, db, &models.DriverProductPrice{}))
}

func TestProductPhotoWithoutStorage(t *testing.T) {
	db := testutil.NewTestDB(t)
	f := testutil.Seed(t, db)
	svc := NewProductService(db, nil)

	_, err := svc.SetPhoto(context.Background(), f.Water.ID, testutil.FileHeader(t, "water.png", testutil.PNG))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "STORAGE_DISABLED", verr.Code)
}

func TestClientService(t *testing.T) {
	db := testutil.NewTestDB(t)
	f := testutil.Seed(t, db)
	s3 := NewMockS3Service()
	svc := NewClientService(db, NewImageService(s3))
	ctx := context.Background()

	client, err := svc.Create(ctx, ClientInput{FullName: "Rami Aziz", Location: testutil.DefaultLocation, PhoneNumber: "0791234567"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, ClientInput{FullName: "Nowhere", Location: "Atlantis", PhoneNumber: "1"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "LOCATION_NOT_FOUND", verr.Code)

	byPhone, err := svc.List(ctx, "0791")
	require.NoError(t, err)
	require.Len(t, byPhone, 1)
	assert.Equal(t, client.ID, byPhone[0].ID)

	withImage, err := svc.SetHouseImage(ctx, client.ID, testutil.FileHeader(t, "house.png", testutil.PNG))
	require.NoError(t, err)
	require.NotNil(t, withImage.HouseImageKey)
	assert.True(t, strings.HasPrefix(*withImage.HouseImageKey, "client_houses/"), *withImage.HouseImageKey)

	require.NoError(t, svc.Delete(ctx, client.ID))
	assert.False(t, s3.FileExists(*withImage.HouseImageKey))

	_, err = newOrderService(db, nil).Create(ctx, CreateOrderInput{
		ClientID: f.Client.ID,
		Location: testutil.DefaultLocation,
		Items:    []LineInput{{ProductID: f.Water.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	var cerr *ConflictError
	require.ErrorAs(t, svc.Delete(ctx, f.Client.ID), &cerr)
	assert.Equal(t, "CLIENT_HAS_ORDERS", cerr.Code)
}
