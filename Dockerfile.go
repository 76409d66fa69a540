# Dockerfile for the cryptopulse pipeline. Each stage process gets its own
# binary under cmd/, selected at container run time via SERVICE.
FROM golang:1.22-alpine AS builder

WORKDIR /app

RUN apk add --no-cache git

COPY go.mod go.sum ./
RUN go mod download

COPY . .

RUN CGO_ENABLED=0 GOOS=linux go build -a -installsuffix cgo -o /out/trades ./cmd/trades && \
    CGO_ENABLED=0 GOOS=linux go build -a -installsuffix cgo -o /out/candles ./cmd/candles && \
    CGO_ENABLED=0 GOOS=linux go build -a -installsuffix cgo -o /out/ta ./cmd/ta && \
    CGO_ENABLED=0 GOOS=linux go build -a -installsuffix cgo -o /out/news ./cmd/news && \
    CGO_ENABLED=0 GOOS=linux go build -a -installsuffix cgo -o /out/newssignals ./cmd/newssignals

FROM alpine:latest

RUN apk --no-cache add ca-certificates tzdata

WORKDIR /root/

COPY --from=builder /out/ ./
COPY --from=builder /app/configs ./configs

# Health ports: trades=8081 candles=8082 ta=8083 news=8084 newssignals=8085
EXPOSE 8081 8082 8083 8084 8085

ARG SERVICE=trades
ENV SERVICE=${SERVICE}

HEALTHCHECK --interval=30s --timeout=10s --start-period=5s --retries=3 \
  CMD wget --no-verbose --tries=1 --spider http://localhost:8081/health || exit 1

CMD ["sh", "-c", "./${SERVICE}"]
