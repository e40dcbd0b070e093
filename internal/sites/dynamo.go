package sites

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/rs/zerolog/log"

	"github.com/bbernstein/metobs/internal/models"
)

// DynamoScanner is the subset of the DynamoDB client used to read the site table.
type DynamoScanner interface {
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// fromDynamo scans every page of tableName. Items carry site, lat and lng attributes.
func fromDynamo(ctx context.Context, client DynamoScanner, tableName string) ([]models.Site, error) {
	if tableName == "" {
		return nil, fmt.Errorf("dynamodb source needs a table name")
	}

	input := &dynamodb.ScanInput{TableName: aws.String(tableName)}
	var sites []models.Site

	for page := 1; ; page++ {
		out, err := client.Scan(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("scanning %s page %d: %w", tableName, page, err)
		}

		var batch []models.Site
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &batch); err != nil {
			return nil, fmt.Errorf("unmarshalling %s page %d: %w", tableName, page, err)
		}
		sites = append(sites, batch...)

		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}

	log.Debug().
		Str("table", tableName).
		Int("site_count", len(sites)).
		Msg("Loaded sites from DynamoDB")
	return sites, nil
}
