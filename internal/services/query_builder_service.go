package services

import (
	"fmt"
	"regexp"
	"strings"
)

// QueryBuilderService 可视化SQL查询构建服务
//
// 把结构化的查询描述拼装成带$n占位符的SELECT语句，
// 标识符白名单校验，值一律走参数，不做内联。
type QueryBuilderService struct {
	maxLimit int
}

// NewQueryBuilderService 创建查询构建服务
func NewQueryBuilderService() *QueryBuilderService {
	return &QueryBuilderService{maxLimit: 1000}
}

// QueryColumn 查询列
type QueryColumn struct {
	Field string `json:"field" binding:"required"`
	Func  string `json:"func"`  // 聚合函数: count/sum/avg/min/max
	Alias string `json:"alias"` // 别名
}

// QueryJoin 表连接
type QueryJoin struct {
	Type    string `json:"type" binding:"required"` // inner/left/right
	Table   string `json:"table" binding:"required"`
	OnLeft  string `json:"on_left" binding:"required"`
	OnRight string `json:"on_right" binding:"required"`
}

// QueryCondition 查询条件
type QueryCondition struct {
	Field     string        `json:"field" binding:"required"`
	Operator  string        `json:"operator" binding:"required"`
	Value     interface{}   `json:"value"`
	Values    []interface{} `json:"values"`    // in/between用
	Connector string        `json:"connector"` // and/or，默认and
}

// QueryOrder 排序
type QueryOrder struct {
	Field string `json:"field" binding:"required"`
	Desc  bool   `json:"desc"`
}

// QueryBuildRequest 查询构建请求
type QueryBuildRequest struct {
	Table   string           `json:"table" binding:"required"`
	Columns []QueryColumn    `json:"columns"`
	Joins   []QueryJoin      `json:"joins"`
	Where   []QueryCondition `json:"where"`
	GroupBy []string         `json:"group_by"`
	Having  []QueryCondition `json:"having"`
	OrderBy []QueryOrder     `json:"order_by"`
	Limit   int              `json:"limit"`
	Offset  int              `json:"offset"`
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)

// 合法的聚合函数
var aggregateFuncs = map[string]string{
	"count": "COUNT",
	"sum":   "SUM",
	"avg":   "AVG",
	"min":   "MIN",
	"max":   "MAX",
}

// 合法的条件操作符
var conditionOperators = map[string]string{
	"=":           "=",
	"!=":          "!=",
	">":           ">",
	">=":          ">=",
	"<":           "<",
	"<=":          "<=",
	"like":        "LIKE",
	"in":          "IN",
	"between":     "BETWEEN",
	"is null":     "IS NULL",
	"is not null": "IS NOT NULL",
}

// 合法的连接类型
var joinTypes = map[string]string{
	"inner": "INNER JOIN",
	"left":  "LEFT JOIN",
	"right": "RIGHT JOIN",
}

// Build 构建SELECT语句，返回SQL文本与参数列表
func (s *QueryBuilderService) Build(req *QueryBuildRequest) (string, []interface{}, error) {
	if req.Table == "" {
		return "", nil, fmt.Errorf("表名不能为空")
	}
	if err := validateIdentifier(req.Table); err != nil {
		return "", nil, err
	}

	var sb strings.Builder
	args := make([]interface{}, 0)
	argN := 0

	nextPlaceholder := func(value interface{}) string {
		argN++
		args = append(args, value)
		return fmt.Sprintf("$%d", argN)
	}

	// SELECT 列
	selectExprs, err := s.buildColumns(req.Columns)
	if err != nil {
		return "", nil, err
	}
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(selectExprs, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(req.Table)

	// JOIN
	for _, join := range req.Joins {
		joinKeyword, ok := joinTypes[strings.ToLower(join.Type)]
		if !ok {
			return "", nil, fmt.Errorf("非法的连接类型: %s", join.Type)
		}
		for _, ident := range []string{join.Table, join.OnLeft, join.OnRight} {
			if err := validateIdentifier(ident); err != nil {
				return "", nil, err
			}
		}
		sb.WriteString(fmt.Sprintf(" %s %s ON %s = %s", joinKeyword, join.Table, join.OnLeft, join.OnRight))
	}

	// WHERE
	if len(req.Where) > 0 {
		whereClause, err := s.buildConditions(req.Where, nextPlaceholder)
		if err != nil {
			return "", nil, err
		}
		sb.WriteString(" WHERE ")
		sb.WriteString(whereClause)
	}

	// GROUP BY
	if len(req.GroupBy) > 0 {
		for _, field := range req.GroupBy {
			if err := validateIdentifier(field); err != nil {
				return "", nil, err
			}
		}
		sb.WriteString(" GROUP BY ")
		sb.WriteString(strings.Join(req.GroupBy, ", "))
	}

	// HAVING
	if len(req.Having) > 0 {
		if len(req.GroupBy) == 0 {
			return "", nil, fmt.Errorf("having必须与group by配合使用")
		}
		havingClause, err := s.buildConditions(req.Having, nextPlaceholder)
		if err != nil {
			return "", nil, err
		}
		sb.WriteString(" HAVING ")
		sb.WriteString(havingClause)
	}

	// ORDER BY
	if len(req.OrderBy) > 0 {
		orderExprs := make([]string, 0, len(req.OrderBy))
		for _, order := range req.OrderBy {
			if err := validateIdentifier(order.Field); err != nil {
				return "", nil, err
			}
			if order.Desc {
				orderExprs = append(orderExprs, order.Field+" DESC")
			} else {
				orderExprs = append(orderExprs, order.Field+" ASC")
			}
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(orderExprs, ", "))
	}

	// LIMIT / OFFSET
	if req.Limit < 0 || req.Offset < 0 {
		return "", nil, fmt.Errorf("limit和offset不能为负数")
	}
	if req.Limit > s.maxLimit {
		return "", nil, fmt.Errorf("limit不能超过%d", s.maxLimit)
	}
	if req.Limit > 0 {
		sb.WriteString(" LIMIT ")
		sb.WriteString(nextPlaceholder(req.Limit))
	}
	if req.Offset > 0 {
		sb.WriteString(" OFFSET ")
		sb.WriteString(nextPlaceholder(req.Offset))
	}

	return sb.String(), args, nil
}

// buildColumns 构建SELECT列表达式；空列表退化为 *
func (s *QueryBuilderService) buildColumns(columns []QueryColumn) ([]string, error) {
	if len(columns) == 0 {
		return []string{"*"}, nil
	}

	exprs := make([]string, 0, len(columns))
	for _, col := range columns {
		if col.Field != "*" {
			if err := validateIdentifier(col.Field); err != nil {
				return nil, err
			}
		}

		expr := col.Field
		if col.Func != "" {
			fn, ok := aggregateFuncs[strings.ToLower(col.Func)]
			if !ok {
				return nil, fmt.Errorf("非法的聚合函数: %s", col.Func)
			}
			expr = fmt.Sprintf("%s(%s)", fn, col.Field)
		} else if col.Field == "*" {
			// 裸 * 只允许出现在聚合函数里或单独作为全列
			if len(columns) > 1 {
				return nil, fmt.Errorf("非法的列名: *")
			}
		}

		if col.Alias != "" {
			if err := validateIdentifier(col.Alias); err != nil {
				return nil, err
			}
			expr = expr + " AS " + col.Alias
		}
		exprs = append(exprs, expr)
	}
	return exprs, nil
}

// buildConditions 构建条件子句
func (s *QueryBuilderService) buildConditions(conditions []QueryCondition, nextPlaceholder func(interface{}) string) (string, error) {
	var sb strings.Builder
	for i, cond := range conditions {
		op, ok := conditionOperators[strings.ToLower(cond.Operator)]
		if !ok {
			return "", fmt.Errorf("非法的操作符: %s", cond.Operator)
		}
		if err := validateIdentifier(cond.Field); err != nil {
			return "", err
		}

		if i > 0 {
			connector := "AND"
			if strings.EqualFold(cond.Connector, "or") {
				connector = "OR"
			}
			sb.WriteString(" " + connector + " ")
		}

		switch op {
		case "IS NULL", "IS NOT NULL":
			sb.WriteString(cond.Field + " " + op)
		case "IN":
			if len(cond.Values) == 0 {
				return "", fmt.Errorf("in操作符必须提供values")
			}
			placeholders := make([]string, 0, len(cond.Values))
			for _, v := range cond.Values {
				placeholders = append(placeholders, nextPlaceholder(v))
			}
			sb.WriteString(fmt.Sprintf("%s IN (%s)", cond.Field, strings.Join(placeholders, ", ")))
		case "BETWEEN":
			if len(cond.Values) != 2 {
				return "", fmt.Errorf("between操作符必须提供两个values")
			}
			sb.WriteString(fmt.Sprintf("%s BETWEEN %s AND %s",
				cond.Field, nextPlaceholder(cond.Values[0]), nextPlaceholder(cond.Values[1])))
		default:
			if cond.Value == nil {
				return "", fmt.Errorf("操作符%s必须提供value", cond.Operator)
			}
			sb.WriteString(fmt.Sprintf("%s %s %s", cond.Field, op, nextPlaceholder(cond.Value)))
		}
	}
	return sb.String(), nil
}

// validateIdentifier 校验标识符合法性，防注入
func validateIdentifier(name string) error {
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("非法的标识符: %s", name)
	}
	return nil
}
