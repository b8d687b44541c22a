package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/attractorlabs/attractor/internal/spec"
	"github.com/attractorlabs/attractor/internal/twin"
)

func (s *Server) handleSpecValidate(c *gin.Context) {
	var payload spec.Spec
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, spec.Validate(&payload))
}

func (s *Server) handleSpecCompile(c *gin.Context) {
	var payload spec.Spec
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result := spec.Compile(&payload)
	if len(result.Errors) > 0 {
		c.JSON(http.StatusUnprocessableEntity, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleProvision(c *gin.Context) {
	var envSpec twin.EnvironmentSpec
	if err := c.ShouldBindJSON(&envSpec); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, s.twins.Provision(envSpec))
}

func (s *Server) handleEnvironments(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"environments": s.twins.List()})
}

func (s *Server) handleEnvironmentStatus(c *gin.Context) {
	status, ok := s.twins.Status(c.Param("namespace"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "environment not found"})
		return
	}
	c.JSON(http.StatusOK, status)
}

func (s *Server) handleTeardown(c *gin.Context) {
	c.JSON(http.StatusOK, s.twins.Teardown(c.Param("namespace")))
}
