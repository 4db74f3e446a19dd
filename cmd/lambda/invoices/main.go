package main

import (
	awslambda "github.com/aws/aws-lambda-go/lambda"
	"github.com/gin-gonic/gin"

	"bol-invoice-api/pkg/lambda"
)

func main() {
	gin.SetMode(gin.ReleaseMode)

	manager := lambda.GetConnectionManager()
	awslambda.Start(manager.Handle)
}
