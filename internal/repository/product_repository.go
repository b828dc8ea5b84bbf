package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/cloud-wave-best-zizon/stock-tracker/internal/domain"
)

// productItem is the stored shape: the product plus lowercase copies of the
// searchable text, since DynamoDB's contains() is case sensitive.
type productItem struct {
	domain.Product
	NameLower        string `dynamodbav:"name_lower"`
	DescriptionLower string `dynamodbav:"description_lower,omitempty"`
}

func newProductItem(p domain.Product) productItem {
	item := productItem{Product: p, NameLower: strings.ToLower(p.Name)}
	if p.Description != nil {
		item.DescriptionLower = strings.ToLower(*p.Description)
	}
	return item
}

// DynamoProductRepository stores products in a table keyed by "id". Lists
// and aggregates scan the table and finish in process.
type DynamoProductRepository struct {
	client    DynamoDBAPI
	tableName string
	logger    *zap.Logger
}

func NewDynamoProductRepository(client DynamoDBAPI, tableName string, logger *zap.Logger) *DynamoProductRepository {
	return &DynamoProductRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

func productKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"id": &types.AttributeValueMemberS{Value: id},
	}
}

func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

// scanCondition pushes the filter down to the scan so fewer items come back.
// ok is false when the filter has no conditions.
func scanCondition(f domain.ProductFilter) (cond expression.ConditionBuilder, ok bool) {
	var conds []expression.ConditionBuilder

	if f.Search != "" {
		q := strings.ToLower(f.Search)
		conds = append(conds, expression.Or(
			expression.Contains(expression.Name("name_lower"), q),
			expression.Contains(expression.Name("description_lower"), q),
		))
	}
	if f.MinPrice != nil {
		conds = append(conds, expression.GreaterThanEqual(expression.Name("price"), expression.Value(*f.MinPrice)))
	}
	if f.MaxPrice != nil {
		conds = append(conds, expression.LessThanEqual(expression.Name("price"), expression.Value(*f.MaxPrice)))
	}
	if f.MinQuantity != nil {
		conds = append(conds, expression.GreaterThanEqual(expression.Name("quantity"), expression.Value(*f.MinQuantity)))
	}
	if f.MaxQuantity != nil {
		conds = append(conds, expression.LessThanEqual(expression.Name("quantity"), expression.Value(*f.MaxQuantity)))
	}

	switch len(conds) {
	case 0:
		return cond, false
	case 1:
		return conds[0], true
	default:
		return expression.And(conds[0], conds[1], conds[2:]...), true
	}
}

func (r *DynamoProductRepository) scanInput(f domain.ProductFilter) (*dynamodb.ScanInput, error) {
	in := &dynamodb.ScanInput{TableName: aws.String(r.tableName)}

	cond, ok := scanCondition(f)
	if !ok {
		return in, nil
	}
	expr, err := expression.NewBuilder().WithFilter(cond).Build()
	if err != nil {
		return nil, err
	}
	in.FilterExpression = expr.Filter()
	in.ExpressionAttributeNames = expr.Names()
	in.ExpressionAttributeValues = expr.Values()
	return in, nil
}

func (r *DynamoProductRepository) scan(ctx context.Context, in *dynamodb.ScanInput) ([]domain.Product, error) {
	var products []domain.Product

	paginator := dynamodb.NewScanPaginator(r.client, in)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}

		var items []productItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, err
		}
		for _, item := range items {
			products = append(products, item.Product)
		}
	}
	return products, nil
}

func (r *DynamoProductRepository) List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, int64, error) {
	f := filter.Normalize()

	in, err := r.scanInput(f)
	if err != nil {
		return nil, 0, storageErr(r.logger, "build product scan", err)
	}
	all, err := r.scan(ctx, in)
	if err != nil {
		return nil, 0, storageErr(r.logger, "scan products", err)
	}

	page, total := domain.FilterPage(all, f)
	return page, total, nil
}

func (r *DynamoProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       productKey(id),
	})
	if err != nil {
		return nil, storageErr(r.logger, "get product", err)
	}
	if result.Item == nil {
		return nil, domain.ErrProductNotFound
	}

	var item productItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, storageErr(r.logger, "unmarshal product", err)
	}
	return &item.Product, nil
}

func (r *DynamoProductRepository) Create(ctx context.Context, product *domain.Product) error {
	av, err := attributevalue.MarshalMap(newProductItem(*product))
	if err != nil {
		return storageErr(r.logger, "marshal product", err)
	}

	cond, err := expression.NewBuilder().
		WithCondition(expression.AttributeNotExists(expression.Name("id"))).
		Build()
	if err != nil {
		return storageErr(r.logger, "build product condition", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(r.tableName),
		Item:                     av,
		ConditionExpression:      cond.Condition(),
		ExpressionAttributeNames: cond.Names(),
	})
	if err != nil {
		return storageErr(r.logger, "put product", err)
	}
	return nil
}

// updateExpression translates a patch into SET and REMOVE clauses, keeping
// the lowercase search copies in step with name and description.
func updateExpression(patch domain.ProductPatch) expression.UpdateBuilder {
	update := expression.Set(expression.Name("updated_at"), expression.Value(patch.UpdatedAt))

	if patch.Name != nil {
		update = update.Set(expression.Name("name"), expression.Value(*patch.Name))
		update = update.Set(expression.Name("name_lower"), expression.Value(strings.ToLower(*patch.Name)))
	}
	if patch.Description.Set {
		if d := patch.Description.Ptr(); d != nil {
			update = update.Set(expression.Name("description"), expression.Value(*d))
			update = update.Set(expression.Name("description_lower"), expression.Value(strings.ToLower(*d)))
		} else {
			update = update.Remove(expression.Name("description"))
			update = update.Remove(expression.Name("description_lower"))
		}
	}
	if patch.Price != nil {
		update = update.Set(expression.Name("price"), expression.Value(*patch.Price))
	}
	if patch.Quantity != nil {
		update = update.Set(expression.Name("quantity"), expression.Value(*patch.Quantity))
	}
	if patch.Image.Set {
		if img := patch.Image.Ptr(); img != nil {
			update = update.Set(expression.Name("image"), expression.Value(*img))
		} else {
			update = update.Remove(expression.Name("image"))
		}
	}
	return update
}

func (r *DynamoProductRepository) Update(ctx context.Context, id string, patch domain.ProductPatch) (*domain.Product, error) {
	expr, err := expression.NewBuilder().
		WithUpdate(updateExpression(patch)).
		WithCondition(expression.AttributeExists(expression.Name("id"))).
		Build()
	if err != nil {
		return nil, storageErr(r.logger, "build product update", err)
	}

	result, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       productKey(id),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		if isConditionFailed(err) {
			return nil, domain.ErrProductNotFound
		}
		return nil, storageErr(r.logger, "update product", err)
	}

	var item productItem
	if err := attributevalue.UnmarshalMap(result.Attributes, &item); err != nil {
		return nil, storageErr(r.logger, "unmarshal product", err)
	}
	return &item.Product, nil
}

func (r *DynamoProductRepository) Delete(ctx context.Context, id string) error {
	cond, err := expression.NewBuilder().
		WithCondition(expression.AttributeExists(expression.Name("id"))).
		Build()
	if err != nil {
		return storageErr(r.logger, "build product condition", err)
	}

	_, err = r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                aws.String(r.tableName),
		Key:                      productKey(id),
		ConditionExpression:      cond.Condition(),
		ExpressionAttributeNames: cond.Names(),
	})
	if err != nil {
		if isConditionFailed(err) {
			return domain.ErrProductNotFound
		}
		return storageErr(r.logger, "delete product", err)
	}
	return nil
}

func (r *DynamoProductRepository) Summary(ctx context.Context, lowStockThreshold int) (*domain.StockSummary, error) {
	all, err := r.scan(ctx, &dynamodb.ScanInput{TableName: aws.String(r.tableName)})
	if err != nil {
		return nil, storageErr(r.logger, "scan products", err)
	}

	s := domain.Summarize(all, lowStockThreshold)
	return &s, nil
}

func (r *DynamoProductRepository) StockLevels(ctx context.Context) ([]domain.Product, error) {
	all, err := r.scan(ctx, &dynamodb.ScanInput{TableName: aws.String(r.tableName)})
	if err != nil {
		return nil, storageErr(r.logger, "scan products", err)
	}

	domain.SortProducts(all, domain.SortByQuantity, domain.SortDesc)
	return all, nil
}
