package images_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/notedrop/notedrop/images"
)

func TestSaveAndDelete(t *testing.T) {
	dir := t.TempDir()
	imageStore, err := images.NewStore(dir)
	assert.NoError(t, err)

	name, err := imageStore.Save(strings.NewReader("fake-image-content"), "photo.PNG")
	assert.NoError(t, err)
	assert.True(t, strings.HasSuffix(name, ".png"))

	content, err := os.ReadFile(filepath.Join(dir, name))
	assert.NoError(t, err)
	assert.Equal(t, "fake-image-content", string(content))

	assert.NoError(t, imageStore.Delete(name))
	_, err = os.Stat(filepath.Join(dir, name))
	assert.True(t, os.IsNotExist(err))
}

func TestDelete_AbsentIsNotAnError(t *testing.T) {
	imageStore, err := images.NewStore(t.TempDir())
	assert.NoError(t, err)

	assert.NoError(t, imageStore.Delete("never-existed.png"))
}

func TestDelete_RejectsPathEscapes(t *testing.T) {
	imageStore, err := images.NewStore(t.TempDir())
	assert.NoError(t, err)

	assert.Error(t, imageStore.Delete("../outside.png"))
	assert.Error(t, imageStore.Delete("nested/inside.png"))
	assert.Error(t, imageStore.Delete(""))
}
