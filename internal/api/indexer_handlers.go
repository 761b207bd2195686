package api

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/openindexer/indexerd/internal/repository"
	"github.com/openindexer/indexerd/pkg/errors"
	"github.com/openindexer/indexerd/pkg/models"
)

// maxScriptSize bounds uploaded indexer scripts
const maxScriptSize = 5 << 20 // 5MB

// createIndexer handles POST /v1/indexers: a multipart form with the script
// file under "script.js" and the target under "webhook_url"
func (s *Server) createIndexer(c *gin.Context) {
	file, err := c.FormFile("script.js")
	if err != nil {
		s.writeError(c, errors.New(errors.ErrorTypeValidation, "script.js file is required"))
		return
	}
	if file.Size > maxScriptSize {
		s.writeError(c, errors.New(errors.ErrorTypeValidation, "script exceeds maximum size"))
		return
	}

	f, err := file.Open()
	if err != nil {
		s.writeError(c, errors.Wrap(err, errors.ErrorTypeValidation, "failed to open uploaded script"))
		return
	}
	defer func() { _ = f.Close() }()

	script, err := io.ReadAll(io.LimitReader(f, maxScriptSize+1))
	if err != nil {
		s.writeError(c, errors.Wrap(err, errors.ErrorTypeValidation, "failed to read uploaded script"))
		return
	}

	webhookURL := c.PostForm("webhook_url")

	indexer, err := s.indexers.Create(c.Request.Context(), script, webhookURL)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, indexer)
}

func (s *Server) getIndexer(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		s.writeError(c, err)
		return
	}

	indexer, err := s.indexers.Get(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, indexer)
}

func (s *Server) listIndexers(c *gin.Context) {
	var filter repository.IndexerFilter
	if raw := c.Query("status"); raw != "" {
		status, err := models.ParseIndexerStatus(raw)
		if err != nil {
			s.writeError(c, err)
			return
		}
		filter.Status = &status
	}

	indexers, err := s.indexers.List(c.Request.Context(), filter)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if indexers == nil {
		indexers = []*models.Indexer{}
	}
	c.JSON(http.StatusOK, gin.H{"indexers": indexers})
}

func (s *Server) startIndexer(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		s.writeError(c, err)
		return
	}

	indexer, err := s.indexers.Start(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, indexer)
}

func (s *Server) stopIndexer(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		s.writeError(c, err)
		return
	}

	indexer, err := s.indexers.Stop(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, indexer)
}

// indexerStats handles GET /v1/indexers/:id/stats?from=...&to=... with
// RFC3339 bounds; to defaults to now, from to 24h before to
func (s *Server) indexerStats(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		s.writeError(c, err)
		return
	}

	to := time.Now().UTC()
	if raw := c.Query("to"); raw != "" {
		to, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			s.writeError(c, errors.New(errors.ErrorTypeValidation, "invalid to timestamp"))
			return
		}
	}

	from := to.Add(-24 * time.Hour)
	if raw := c.Query("from"); raw != "" {
		from, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			s.writeError(c, errors.New(errors.ErrorTypeValidation, "invalid from timestamp"))
			return
		}
	}

	stats, err := s.indexers.Stats(c.Request.Context(), id, from, to)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if stats == nil {
		stats = []*models.IndexerStat{}
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

func parseID(c *gin.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, errors.New(errors.ErrorTypeValidation, "invalid indexer id")
	}
	return id, nil
}
