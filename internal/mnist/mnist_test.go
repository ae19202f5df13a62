package mnist_test

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/binary"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/loom-ml/loom/internal/mnist"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// encodeImages builds an IDX image stream for the given 784-byte images.
func encodeImages(images ...[]byte) []byte {
	header := make([]byte, 16)
	binary.BigEndian.PutUint32(header[0:], 2051)
	binary.BigEndian.PutUint32(header[4:], uint32(len(images)))
	binary.BigEndian.PutUint32(header[8:], 28)
	binary.BigEndian.PutUint32(header[12:], 28)

	buf := bytes.NewBuffer(header)
	for _, img := range images {
		buf.Write(img)
	}
	return buf.Bytes()
}

// encodeLabels builds an IDX label stream.
func encodeLabels(labels ...byte) []byte {
	header := make([]byte, 8)
	binary.BigEndian.PutUint32(header[0:], 2049)
	binary.BigEndian.PutUint32(header[4:], uint32(len(labels)))

	buf := bytes.NewBuffer(header)
	buf.Write(labels)
	return buf.Bytes()
}

func gzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write(data)
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func TestDecodeImages(t *testing.T) {
	first := make([]byte, mnist.ImageSize)
	first[0] = 255
	first[783] = 128
	second := make([]byte, mnist.ImageSize)

	images, err := mnist.DecodeImages(bytes.NewReader(encodeImages(first, second)))
	require.NoError(t, err)
	require.Len(t, images, 2)

	assert.InDelta(t, 1.0, images[0][0], 1e-6, "255 should normalize to 1.0")
	assert.InDelta(t, 128.0/255.0, images[0][783], 1e-6)
	for i, p := range images[1] {
		require.Equal(t, float32(0), p, "blank image pixel %d", i)
	}
}

func TestDecodeImages_Errors(t *testing.T) {
	t.Run("bad magic", func(t *testing.T) {
		data := encodeImages(make([]byte, mnist.ImageSize))
		binary.BigEndian.PutUint32(data[0:], 2049)

		_, err := mnist.DecodeImages(bytes.NewReader(data))
		assert.ErrorContains(t, err, "magic")
	})

	t.Run("wrong dimensions", func(t *testing.T) {
		data := encodeImages(make([]byte, mnist.ImageSize))
		binary.BigEndian.PutUint32(data[8:], 14)
		binary.BigEndian.PutUint32(data[12:], 14)

		_, err := mnist.DecodeImages(bytes.NewReader(data))
		assert.ErrorContains(t, err, "dimensions")
	})

	t.Run("truncated data", func(t *testing.T) {
		data := encodeImages(make([]byte, mnist.ImageSize))
		binary.BigEndian.PutUint32(data[4:], 3) // claims 3 images, carries 1

		_, err := mnist.DecodeImages(bytes.NewReader(data))
		assert.Error(t, err)
	})
}

func TestDecodeLabels(t *testing.T) {
	labels, err := mnist.DecodeLabels(bytes.NewReader(encodeLabels(0, 5, 9)))
	require.NoError(t, err)
	assert.Equal(t, []int32{0, 5, 9}, labels)
}

func TestDecodeLabels_OutOfRange(t *testing.T) {
	_, err := mnist.DecodeLabels(bytes.NewReader(encodeLabels(3, 10)))
	assert.ErrorContains(t, err, "out of range")
}

// writeTestSplit writes a small test split (t10k files) into dir.
func writeTestSplit(t *testing.T, dir string, images [][]byte, labels []byte) {
	t.Helper()
	err := os.WriteFile(filepath.Join(dir, mnist.TestImagesFile), encodeImages(images...), 0o644)
	require.NoError(t, err)
	err = os.WriteFile(filepath.Join(dir, mnist.TestLabelsFile), encodeLabels(labels...), 0o644)
	require.NoError(t, err)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	img := make([]byte, mnist.ImageSize)
	img[100] = 200
	writeTestSplit(t, dir, [][]byte{img, img, img}, []byte{7, 1, 4})

	data, err := mnist.Load(dir, false, 0)
	require.NoError(t, err)

	assert.Equal(t, 3, data.NumSamples())
	assert.Equal(t, []int32{7, 1, 4}, data.Labels)
	assert.InDelta(t, 200.0/255.0, data.Images[0][100], 1e-6)
}

func TestLoad_MaxSamples(t *testing.T) {
	dir := t.TempDir()
	img := make([]byte, mnist.ImageSize)
	writeTestSplit(t, dir, [][]byte{img, img, img, img}, []byte{0, 1, 2, 3})

	data, err := mnist.Load(dir, false, 2)
	require.NoError(t, err)

	assert.Equal(t, 2, data.NumSamples())
	assert.Equal(t, []int32{0, 1}, data.Labels)
}

func TestLoad_CountMismatch(t *testing.T) {
	dir := t.TempDir()
	img := make([]byte, mnist.ImageSize)
	writeTestSplit(t, dir, [][]byte{img, img}, []byte{0, 1, 2})

	_, err := mnist.Load(dir, false, 0)
	assert.ErrorContains(t, err, "does not match")
}

func TestLoad_MissingFiles(t *testing.T) {
	_, err := mnist.Load(t.TempDir(), true, 0)
	assert.Error(t, err)
}

func TestSynthetic(t *testing.T) {
	data := mnist.Synthetic(100)

	require.Equal(t, 100, data.NumSamples())

	for i, label := range data.Labels {
		assert.Equal(t, int32(i%10), label, "labels should cycle through the digits")
	}

	for i, img := range data.Images {
		require.Len(t, img, mnist.ImageSize)
		var lit int
		for _, p := range img {
			require.GreaterOrEqual(t, p, float32(0))
			require.LessOrEqual(t, p, float32(1))
			if p > 0 {
				lit++
			}
		}
		assert.Greater(t, lit, 0, "sample %d should have active pixels", i)
	}

	// Distinct classes must produce distinct patterns
	assert.NotEqual(t, data.Images[0], data.Images[1])

	// Deterministic across calls
	again := mnist.Synthetic(100)
	assert.Equal(t, data.Images, again.Images)
	assert.Equal(t, data.Labels, again.Labels)
}

func TestSplit(t *testing.T) {
	data := mnist.Synthetic(100)
	train, held := data.Split(0.2)

	assert.Equal(t, 80, train.NumSamples())
	assert.Equal(t, 20, held.NumSamples())

	// The halves are views of the original ordering
	assert.Equal(t, data.Labels[0], train.Labels[0])
	assert.Equal(t, data.Labels[80], held.Labels[0])
}

func TestClassIndex(t *testing.T) {
	data := &mnist.Dataset{
		Images: [][]float32{nil, nil, nil},
		Labels: []int32{3, 1, 3},
	}

	index := data.ClassIndex()
	require.Len(t, index, mnist.NumClasses)

	assert.Equal(t, []int{0, 2}, index[3])
	assert.Equal(t, []int{1}, index[1])
	for _, c := range []int{0, 2, 4, 5, 6, 7, 8, 9} {
		assert.Empty(t, index[c], "class %d has no samples", c)
	}
}

func TestDownloadFrom(t *testing.T) {
	img := make([]byte, mnist.ImageSize)
	img[42] = 250

	fixtures := map[string][]byte{
		"/" + mnist.TrainImagesFile + ".gz": gzipBytes(t, encodeImages(img, img)),
		"/" + mnist.TrainLabelsFile + ".gz": gzipBytes(t, encodeLabels(2, 8)),
		"/" + mnist.TestImagesFile + ".gz":  gzipBytes(t, encodeImages(img)),
		"/" + mnist.TestLabelsFile + ".gz":  gzipBytes(t, encodeLabels(5)),
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := fixtures[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write(body)
	}))
	defer server.Close()

	dir := t.TempDir()
	require.NoError(t, mnist.DownloadFrom(context.Background(), server.URL, dir))

	train, err := mnist.Load(dir, true, 0)
	require.NoError(t, err)
	assert.Equal(t, []int32{2, 8}, train.Labels)
	assert.InDelta(t, 250.0/255.0, train.Images[0][42], 1e-6)

	test, err := mnist.Load(dir, false, 0)
	require.NoError(t, err)
	assert.Equal(t, []int32{5}, test.Labels)
}

func TestDownloadFrom_SkipsExistingFiles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "should not be fetched", http.StatusInternalServerError)
	}))
	defer server.Close()

	dir := t.TempDir()
	for _, name := range []string{
		mnist.TrainImagesFile, mnist.TrainLabelsFile,
		mnist.TestImagesFile, mnist.TestLabelsFile,
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("present"), 0o644))
	}

	assert.NoError(t, mnist.DownloadFrom(context.Background(), server.URL, dir))
}

func TestDownloadFrom_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(http.NotFound))
	defer server.Close()

	err := mnist.DownloadFrom(context.Background(), server.URL, t.TempDir())
	assert.ErrorContains(t, err, "404")
}
